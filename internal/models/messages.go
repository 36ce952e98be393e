package models

// Email is an outgoing notification addressed to a single recipient.
type Email struct {
	To      string
	Subject string
	Body    string
}
