// Package broker abstracts the MQTT session to the incubator. Clients never
// touch application state: everything they observe is sent as an Event to
// the owner of the session.
package broker

import (
	"errors"
	"fmt"
	"time"
)

type EventKind int

const (
	EventConnected EventKind = iota
	EventConnectFailed
	EventConnectionLost
	EventMessage
	EventSubscribeFailed
	EventPublishFailed
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventConnectFailed:
		return "connect_failed"
	case EventConnectionLost:
		return "connection_lost"
	case EventMessage:
		return "message"
	case EventSubscribeFailed:
		return "subscribe_failed"
	case EventPublishFailed:
		return "publish_failed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is produced by a Client for the session it was created for.
type Event struct {
	Session uint64
	Kind    EventKind
	Topic   string
	Payload []byte
	Err     error
	At      time.Time
}

// Options configure one broker session.
type Options struct {
	Host           string
	Port           int
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// Addr is the broker URL.
func (o Options) Addr() string { return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port) }

// ErrNotConnected is returned by Publish when the session is not open.
var ErrNotConnected = errors.New("broker session not connected")

// Client is one broker session. All methods return promptly; outcomes of
// connect, subscribe and publish arrive as Events. A Client is not reused
// after Disconnect.
type Client interface {
	Connect()
	Subscribe(topic string, qos byte)
	Publish(topic string, qos byte, payload []byte) error
	Disconnect()
}

// Factory creates the Client for a session. Events must be tagged with
// session and sent on events.
type Factory func(session uint64, opts Options, events chan<- Event) Client
