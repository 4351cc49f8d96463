package commands

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/client"
)

// retryInterval is the first wait between rate limited attempts.
var retryInterval = 2 * time.Second

// retryRateLimited runs op up to tries times, waiting with exponential backoff
// while the server answers 429. Every other failure is returned at once.
func retryRateLimited[T any](ctx context.Context, tries uint, op func() (T, error)) (T, error) {
	if tries <= 1 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInterval

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if client.KindOf(err) != client.KindRateLimited {
			return v, backoff.Permanent(err)
		}
		log.Debug().Int("attempt", attempt).Uint("tries", tries).Msg("rate limited, backing off")
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
