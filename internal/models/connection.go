package models

import (
	"strings"
	"time"
)

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
	StatusConnecting   ConnectionStatus = "CONNECTING"
	StatusConnected    ConnectionStatus = "CONNECTED"
)

// ConnectionState is owned by the connection manager loop. Readers only ever
// see copies inside a Snapshot.
type ConnectionState struct {
	Status           ConnectionStatus `json:"status"`
	Attempts         int              `json:"attempts"`
	LastAttempt      time.Time        `json:"last_attempt,omitempty"`
	UserDisconnected bool             `json:"user_disconnected"`
	LastError        string           `json:"last_error,omitempty"`
}

// Credentials authenticate against the broker.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Empty reports whether either part is blank.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.Username) == "" || c.Password == ""
}
