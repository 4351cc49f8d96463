package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Caller().Stack().Logger()
	}

	return logger
}

var _ http.RoundTripper = (*RequestLogger)(nil)

// RequestLogger logs every API round trip at debug level. User facing reporting
// of failures is left to the client's notifier.
type RequestLogger struct {
	logger zerolog.Logger
	next   http.RoundTripper
}

func NewRequestLogger(logger zerolog.Logger, next http.RoundTripper) *RequestLogger {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RequestLogger{logger: logger, next: next}
}

func (l *RequestLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()

	ctx := l.logger.With().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Logger().WithContext(req.Context())

	resp, err := l.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		zerolog.Ctx(ctx).Debug().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("api call failed")

		return resp, err
	}

	zerolog.Ctx(ctx).Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("api call")

	return resp, nil
}
