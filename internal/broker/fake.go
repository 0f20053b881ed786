package broker

import (
	"sync"
	"time"
)

// Published is one payload recorded by FakeClient.
type Published struct {
	Topic   string
	QoS     byte
	Payload []byte
}

// FakeClient records calls for test assertions and lets tests inject the
// events a real broker would produce.
type FakeClient struct {
	mu sync.Mutex

	Session uint64
	Opts    Options
	events  chan<- Event

	Connects     int
	Subscribed   []string
	Published    []Published
	Disconnected bool
	// Open controls whether Publish succeeds.
	Open bool
}

var _ Client = (*FakeClient)(nil)

func (f *FakeClient) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connects++
}

func (f *FakeClient) Subscribe(topic string, _ byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Subscribed = append(f.Subscribed, topic)
}

func (f *FakeClient) Publish(topic string, qos byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Open {
		return ErrNotConnected
	}
	f.Published = append(f.Published, Published{Topic: topic, QoS: qos, Payload: append([]byte(nil), payload...)})
	return nil
}

func (f *FakeClient) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Disconnected = true
	f.Open = false
}

// Accept simulates a successful CONNACK.
func (f *FakeClient) Accept() {
	f.mu.Lock()
	f.Open = true
	f.mu.Unlock()
	f.send(Event{Kind: EventConnected})
}

// Refuse simulates a failed connect.
func (f *FakeClient) Refuse(err error) { f.send(Event{Kind: EventConnectFailed, Err: err}) }

// Lose simulates a dropped session.
func (f *FakeClient) Lose(err error) {
	f.mu.Lock()
	f.Open = false
	f.mu.Unlock()
	f.send(Event{Kind: EventConnectionLost, Err: err})
}

// Deliver simulates an inbound message.
func (f *FakeClient) Deliver(topic string, payload []byte) {
	f.send(Event{Kind: EventMessage, Topic: topic, Payload: payload})
}

// FailPublish simulates an asynchronous publish failure.
func (f *FakeClient) FailPublish(topic string, err error) {
	f.send(Event{Kind: EventPublishFailed, Topic: topic, Err: err})
}

// Snapshot returns copies of the recorded calls.
func (f *FakeClient) Snapshot() (connects int, subscribed []string, published []Published, disconnected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connects, append([]string(nil), f.Subscribed...), append([]Published(nil), f.Published...), f.Disconnected
}

func (f *FakeClient) send(ev Event) {
	ev.Session = f.Session
	ev.At = time.Now()
	f.events <- ev
}

// FakeFactory hands out FakeClients and remembers each one.
type FakeFactory struct {
	mu      sync.Mutex
	Clients []*FakeClient
}

// New is a Factory.
func (ff *FakeFactory) New(session uint64, opts Options, events chan<- Event) Client {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	c := &FakeClient{Session: session, Opts: opts, events: events}
	ff.Clients = append(ff.Clients, c)
	return c
}

// Count returns how many clients were created.
func (ff *FakeFactory) Count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.Clients)
}

// Last returns the newest client, or nil.
func (ff *FakeFactory) Last() *FakeClient {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	if len(ff.Clients) == 0 {
		return nil
	}
	return ff.Clients[len(ff.Clients)-1]
}
