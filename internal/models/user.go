package models

// User is a dashboard API account. It is unrelated to the broker
// credentials, which belong to the device link.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
