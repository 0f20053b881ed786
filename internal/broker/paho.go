package broker

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesceMS   = 250
)

// PahoClient is a Client backed by an Eclipse Paho MQTT v3.1.1 client.
// Paho's own reconnect logic is disabled; the session owner decides when to
// retry.
type PahoClient struct {
	client  paho.Client
	session uint64
	opts    Options
	events  chan<- Event

	done     chan struct{}
	doneOnce sync.Once
}

var _ Client = (*PahoClient)(nil)

// NewPahoClient is a Factory.
func NewPahoClient(session uint64, opts Options, events chan<- Event) Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	c := &PahoClient{
		session: session,
		opts:    opts,
		events:  events,
		done:    make(chan struct{}),
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Addr()).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetKeepAlive(opts.KeepAlive).
		SetConnectTimeout(opts.ConnectTimeout).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.emit(Event{Kind: EventConnectionLost, Err: err})
		})
	c.client = paho.NewClient(po)
	return c
}

// Connect starts the session in the background.
func (c *PahoClient) Connect() {
	token := c.client.Connect()
	go func() {
		if !token.WaitTimeout(c.opts.ConnectTimeout + time.Second) {
			c.emit(Event{Kind: EventConnectFailed, Err: fmt.Errorf("%w: connect timed out after %s", ErrNotConnected, c.opts.ConnectTimeout)})
			return
		}
		if err := token.Error(); err != nil {
			c.emit(Event{Kind: EventConnectFailed, Err: err})
			return
		}
		c.emit(Event{Kind: EventConnected})
	}()
}

func (c *PahoClient) Subscribe(topic string, qos byte) {
	token := c.client.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		payload := make([]byte, len(m.Payload()))
		copy(payload, m.Payload())
		c.emit(Event{Kind: EventMessage, Topic: m.Topic(), Payload: payload})
	})
	go func() {
		if !token.WaitTimeout(c.opts.PublishTimeout) {
			c.emit(Event{Kind: EventSubscribeFailed, Topic: topic, Err: fmt.Errorf("subscribe %q timed out", topic)})
			return
		}
		if err := token.Error(); err != nil {
			c.emit(Event{Kind: EventSubscribeFailed, Topic: topic, Err: err})
		}
	}()
}

// Publish queues payload and returns immediately. Delivery failures are
// reported as EventPublishFailed.
func (c *PahoClient) Publish(topic string, qos byte, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, qos, false, payload)
	go func() {
		if !token.WaitTimeout(c.opts.PublishTimeout) {
			c.emit(Event{Kind: EventPublishFailed, Topic: topic, Err: fmt.Errorf("publish to %q timed out", topic)})
			return
		}
		if err := token.Error(); err != nil {
			c.emit(Event{Kind: EventPublishFailed, Topic: topic, Err: err})
		}
	}()
	return nil
}

// Disconnect closes the session; events produced afterwards are dropped.
func (c *PahoClient) Disconnect() {
	c.doneOnce.Do(func() { close(c.done) })
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiesceMS)
	}
}

func (c *PahoClient) emit(ev Event) {
	ev.Session = c.session
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case <-c.done:
	case c.events <- ev:
	}
}
