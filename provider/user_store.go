package provider

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	coreredis "github.com/kristianakila/restbek2/db/redis"
	"github.com/kristianakila/restbek2/errors"
	"github.com/kristianakila/restbek2/metrics"
	"github.com/kristianakila/restbek2/pkg/providers"
	"github.com/kristianakila/restbek2/wheel"
)

// UserStore implements wheel.UserStore on Redis with optimistic
// concurrency: the user document key is WATCHed, the transaction closure
// runs against the freshly read state, and the write goes through
// MULTI/EXEC. A concurrent writer invalidates the EXEC and the whole
// read-modify-write is retried, closure included, so eligibility is always
// re-evaluated against the state that actually commits.
type UserStore struct {
	redis  *coreredis.Client
	opts   providers.TxOptions
	logger zerolog.Logger
}

// NewUserStore creates a Redis-backed user store.
func NewUserStore(redisClient *coreredis.Client, opts providers.TxOptions, logger zerolog.Logger) *UserStore {
	if opts.MaxRetries <= 0 {
		opts = providers.DefaultTxOptions()
	}
	return &UserStore{
		redis:  redisClient,
		opts:   opts,
		logger: logger.With().Str("component", "user_store").Logger(),
	}
}

func (s *UserStore) userKey(tenantID, userID string) string {
	return fmt.Sprintf("wheel:user:%s:%s", tenantID, userID)
}

// GetUser returns the current state, or (nil, nil) when absent.
func (s *UserStore) GetUser(ctx context.Context, tenantID, userID string) (*wheel.UserState, error) {
	data, err := s.redis.Get(ctx, s.userKey(tenantID, userID))
	if err == coreredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUserStoreUnavailable, "user store read failed")
	}
	state, err := wheel.UserStateFromJSON([]byte(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternalServerError, "corrupt user state document")
	}
	return state, nil
}

// RunTransaction implements the atomic read-modify-write contract.
func (s *UserStore) RunTransaction(ctx context.Context, tenantID, userID string, fn wheel.TxFunc) (*wheel.UserState, error) {
	key := s.userKey(tenantID, userID)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var committed *wheel.UserState
	txf := func(tx *goredis.Tx) error {
		data, err := tx.Get(ctx, key).Result()

		var state *wheel.UserState
		found := false
		switch {
		case err == goredis.Nil:
			state = &wheel.UserState{UserID: userID}
		case err != nil:
			return err
		default:
			state, err = wheel.UserStateFromJSON([]byte(data))
			if err != nil {
				return errors.Wrap(err, errors.ErrInternalServerError, "corrupt user state document")
			}
			found = true
		}

		if err := fn(state, found); err != nil {
			return err
		}

		payload, err := state.ToJSON()
		if err != nil {
			return errors.Wrap(err, errors.ErrInternalServerError, "failed to marshal user state")
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			committed = state
		}
		return err
	}

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		err := s.redis.Watch(ctx, txf, key)
		if err == nil {
			metrics.TxRetries.Observe(float64(attempt))
			return committed, nil
		}
		if err == goredis.TxFailedErr {
			s.logger.Debug().
				Str("key", key).
				Int("attempt", attempt+1).
				Msg("Transaction conflict, retrying")
			select {
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrUserStoreUnavailable, "user store transaction timed out")
			case <-time.After(s.opts.Backoff * time.Duration(attempt+1)):
			}
			continue
		}
		// The closure aborted on purpose (eligibility, not-found); pass
		// its error through untouched.
		if errors.IsAppError(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			// Commit status is unknown after a timeout; never report it
			// as a definite failure.
			return nil, errors.Wrap(ctx.Err(), errors.ErrUserStoreUnavailable, "user store transaction timed out")
		}
		return nil, errors.Wrap(err, errors.ErrUserStoreUnavailable, "user store transaction failed")
	}

	return nil, errors.New(errors.ErrUserStoreUnavailable, "user store transaction retries exhausted")
}
