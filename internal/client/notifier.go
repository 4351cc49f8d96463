package client

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notification is a short user facing message about a failed call.
type Notification struct {
	Kind    Kind
	Status  int
	Message string
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications as zerolog events.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	evt := l.logger.Warn()
	if n.Kind == KindServer || n.Kind == KindUnauthorized {
		evt = l.logger.Error()
	}

	evt.Str("kind", n.Kind.String())
	if n.Status != 0 {
		evt.Int("status", n.Status)
	}
	evt.Bool("notification", true).Msg(n.Message)
}

// notification returns the message for err, and false for failures that are
// reported to the caller only.
func notification(apiErr *APIError) (Notification, bool) {
	n := Notification{Kind: apiErr.Kind, Status: apiErr.Status}

	switch apiErr.Kind {
	case KindNetwork:
		if unreachable(apiErr.Err) {
			n.Message = "unable to reach the server, check your network connection"
		} else {
			n.Message = "check your network connection"
		}
	case KindTimeout:
		n.Message = "the request timed out"
	case KindUnauthorized:
		n.Message = "your session has expired, please sign in again"
	case KindForbidden:
		n.Message = "you do not have permission to access this resource"
	case KindNotFound:
		n.Message = "the requested resource could not be found"
	case KindRateLimited:
		n.Message = "too many requests, please try again later"
	case KindServer:
		n.Message = "a server error occurred, please try again later"
	case KindDecode:
		n.Message = "the server sent an unexpected response"
	default:
		return n, false
	}

	return n, true
}

func defaultNotifier() Notifier {
	return NewLogNotifier(log.Logger)
}
