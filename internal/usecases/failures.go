package usecases

import "time"

type FailureKind string

const (
	FailureUserNotFound   FailureKind = "USER_NOT_FOUND"
	FailureChatNotFound   FailureKind = "CHAT_NOT_FOUND"
	FailureChatNotPrivate FailureKind = "CHAT_NOT_PRIVATE"
)

const failureTimeout = 2 * time.Second

// Failure is a business rule violation shown to the user as a message,
// after which the client navigates to Redirect.
type Failure struct {
	Kind     FailureKind
	Message  string
	Redirect string
	Timeout  time.Duration
}

func (f *Failure) Error() string {
	return f.Message
}

var (
	ErrUserNotFound = &Failure{
		Kind:     FailureUserNotFound,
		Message:  "Deze gebruiker bestaat niet.",
		Redirect: "ChatSystem",
		Timeout:  failureTimeout,
	}
	ErrChatNotFound = &Failure{
		Kind:     FailureChatNotFound,
		Message:  "Deze chat bestaat niet.",
		Redirect: "Chat",
		Timeout:  failureTimeout,
	}
	ErrChatNotPrivate = &Failure{
		Kind:     FailureChatNotPrivate,
		Message:  "Deze chat is niet privé.",
		Redirect: "Chat",
		Timeout:  failureTimeout,
	}
)
