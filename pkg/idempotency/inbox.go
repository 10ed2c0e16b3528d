// Package idempotency stores explicit idempotency keys for dispensing
// batches. Recording dispensing twice for the same diagnosis would double
// both the audit trail and the stock adjustment, so the key is persisted
// alongside the batch instead of being tracked as a client-side flag.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Status is the processing state of an inbox entry.
type Status string

const (
	StatusStarted  Status = "STARTED"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// ErrInProgress indicates another handler currently owns the key.
var ErrInProgress = errors.New("dispensing for this diagnosis is already in progress")

// Entry is a persisted idempotency record.
type Entry struct {
	Key       string
	Status    Status
	Result    json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Config holds inbox tuning.
type Config struct {
	// RecoveryTimeout is when a STARTED entry is considered abandoned by a
	// crashed handler and may be reclaimed.
	RecoveryTimeout time.Duration
	// RetentionPeriod is how long finished entries are kept for replay.
	RetentionPeriod time.Duration
}

// DefaultConfig returns conservative defaults. Dispensing replays must keep
// working for as long as a practitioner might legitimately resubmit, so
// retention is generous.
func DefaultConfig() Config {
	return Config{
		RecoveryTimeout: 2 * time.Minute,
		RetentionPeriod: 30 * 24 * time.Hour,
	}
}

// Inbox provides idempotent execution keyed by diagnosis.
type Inbox struct {
	pool   *pgxpool.Pool
	config Config
	logger *zap.Logger
	tracer trace.Tracer
}

// NewInbox creates an inbox backed by the given pool.
func NewInbox(pool *pgxpool.Pool, cfg Config, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{
		pool:   pool,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer("dispense-inbox"),
	}
}

// Key derives the deterministic idempotency key for one diagnosis's
// dispensing batch.
func Key(practitionerID, diagnosisID string) string {
	sum := sha256.Sum256([]byte(practitionerID + "|" + diagnosisID))
	return hex.EncodeToString(sum[:])
}

// Outcome reports whether fn actually ran or a stored result was replayed.
type Outcome struct {
	Replayed bool
	Result   json.RawMessage
}

// Execute runs fn at most once per key. A repeated call returns the stored
// result of the first successful run; a failed run releases the key so the
// caller can retry.
func (i *Inbox) Execute(ctx context.Context, key string, fn func(ctx context.Context) (json.RawMessage, error)) (*Outcome, error) {
	ctx, span := i.tracer.Start(ctx, "inbox_execute",
		trace.WithAttributes(attribute.String("idempotency_key", key)))
	defer span.End()

	entry, err := i.get(ctx, key)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("inbox lookup: %w", err)
	}

	if entry != nil {
		switch entry.Status {
		case StatusFinished:
			span.SetAttributes(attribute.Bool("replayed", true))
			return &Outcome{Replayed: true, Result: entry.Result}, nil
		case StatusStarted:
			if time.Since(entry.UpdatedAt) <= i.config.RecoveryTimeout {
				return nil, ErrInProgress
			}
			// Stale: the previous handler likely crashed mid-batch.
			i.logger.Warn("reclaiming stale inbox entry", zap.String("key", key))
		case StatusFailed:
			// Failed batches may be retried.
		}
	}

	if err := i.claim(ctx, key); err != nil {
		return nil, err
	}

	result, fnErr := fn(ctx)
	if fnErr != nil {
		if err := i.setStatus(ctx, key, StatusFailed, nil); err != nil {
			i.logger.Error("failed to release inbox key", zap.Error(err))
		}
		span.RecordError(fnErr)
		return nil, fnErr
	}

	if err := i.setStatus(ctx, key, StatusFinished, result); err != nil {
		// The batch itself succeeded. Losing the marker only risks a later
		// replay re-executing, which the audit trail will surface.
		i.logger.Error("failed to mark inbox finished", zap.Error(err))
	}

	return &Outcome{Result: result}, nil
}

func (i *Inbox) get(ctx context.Context, key string) (*Entry, error) {
	query := `
		SELECT idempotency_key, status, result, created_at, updated_at
		FROM dispense_inbox
		WHERE idempotency_key = $1
	`
	entry := &Entry{}
	err := i.pool.QueryRow(ctx, query, key).Scan(
		&entry.Key, &entry.Status, &entry.Result, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// claim inserts the key as STARTED, or takes over an entry that previously
// failed or went stale. Losing the race returns ErrInProgress.
func (i *Inbox) claim(ctx context.Context, key string) error {
	query := `
		INSERT INTO dispense_inbox (idempotency_key, status)
		VALUES ($1, $2)
		ON CONFLICT (idempotency_key) DO UPDATE
		SET status = $2, updated_at = NOW()
		WHERE dispense_inbox.status = 'FAILED'
		   OR (dispense_inbox.status = 'STARTED' AND dispense_inbox.updated_at < NOW() - $3::interval)
		RETURNING idempotency_key
	`
	var returned string
	err := i.pool.QueryRow(ctx, query, key, StatusStarted, i.config.RecoveryTimeout.String()).Scan(&returned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInProgress
		}
		return fmt.Errorf("inbox claim: %w", err)
	}
	return nil
}

func (i *Inbox) setStatus(ctx context.Context, key string, status Status, result json.RawMessage) error {
	query := `
		UPDATE dispense_inbox
		SET status = $1, result = $2, updated_at = NOW()
		WHERE idempotency_key = $3
	`
	_, err := i.pool.Exec(ctx, query, status, result, key)
	return err
}

// Cleanup removes finished entries older than the retention period. Runs on
// a schedule from the relay service.
func (i *Inbox) Cleanup(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM dispense_inbox
		WHERE status = 'FINISHED'
		  AND updated_at < NOW() - $1::interval
	`
	tag, err := i.pool.Exec(ctx, query, i.config.RetentionPeriod.String())
	if err != nil {
		return 0, fmt.Errorf("inbox cleanup: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats summarizes inbox state for the metrics endpoint.
type Stats struct {
	Total    int64
	Started  int64
	Finished int64
	Failed   int64
}

// GetStats returns current inbox counts.
func (i *Inbox) GetStats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'STARTED') AS started,
			COUNT(*) FILTER (WHERE status = 'FINISHED') AS finished,
			COUNT(*) FILTER (WHERE status = 'FAILED') AS failed
		FROM dispense_inbox
	`
	stats := &Stats{}
	err := i.pool.QueryRow(ctx, query).Scan(
		&stats.Total, &stats.Started, &stats.Finished, &stats.Failed,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
