package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"trubid-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 5 * time.Second

// Guard runs a storage operation with a per-attempt deadline and retries it once when the
// failure looks transient. A second transient failure surfaces as domain.ErrStorageUnavailable.
// Any other error is returned unchanged.
type Guard struct {
	Timeout time.Duration
}

func (g Guard) timeout() time.Duration {
	if g.Timeout <= 0 {
		return DefaultTimeout
	}
	return g.Timeout
}

func (g Guard) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout())
		err = fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !Transient(err) {
			return err
		}
		log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("storage: transient failure")
	}
	return fmt.Errorf("%s: %w", op, domain.ErrStorageUnavailable)
}

// Transient reports whether err is a timeout or connection-level failure worth one retry.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08xxx connection exceptions, 40001 serialization failure, 40P01 deadlock, 57P01 admin shutdown
		switch {
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08",
			pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01":
			return true
		}
	}
	return false
}
