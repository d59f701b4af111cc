package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/iamwavecut/scamguard/internal/errors"
	"github.com/iamwavecut/scamguard/internal/observability"
)

type RetryPolicy struct {
	MaxRetries int
	Min        time.Duration
	Max        time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Min:        200 * time.Millisecond,
		Max:        5 * time.Second,
	}
}

// do runs fn, retrying connectivity failures with backoff. Domain errors pass
// through untouched; anything else surfaces as ErrStorage.
func (c *sqlClient) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.retrying(ctx, op, isTransient, fn)
}

// doInsert is do for single non-idempotent writes: it retries only failures
// that guarantee the statement never reached the server.
func (c *sqlClient) doInsert(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return c.retrying(ctx, op, isSafeToRetry, fn)
}

func (c *sqlClient) retrying(ctx context.Context, op string, retryable func(error) bool, fn func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    c.retry.Min,
		Max:    c.retry.Max,
		Factor: 2,
		Jitter: true,
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		switch {
		case err == nil:
			return nil
		case apperrors.IsDomain(err):
			return err
		case ctx.Err() != nil:
			return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStorage, ctx.Err())
		case !retryable(err) || attempt >= c.retry.MaxRetries:
			return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStorage, err)
		}

		wait := b.Duration()
		observability.RecordStorageRetry(op)
		log.WithError(err).WithFields(log.Fields{
			"op":      op,
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).Warn("transient storage failure, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStorage, ctx.Err())
		case <-timer.C:
		}
	}
}

var transientMarkers = []string{
	"database is locked",
	"sqlite_busy",
	"connection refused",
	"connection reset",
	"broken pipe",
	"bad connection",
	"unexpected eof",
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// connection exceptions, serialization failures and deadlocks
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isSafeToRetry reports failures after which the statement is known not to
// have run: a connection rejected before use, a pgx send that never left the
// client, or sqlite refusing the write lock.
func isSafeToRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
