package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"goodsflow/internal/core/id"
	"goodsflow/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// maxOutboxRetries before a message is declared failed.
const maxOutboxRetries = 5

// OutboxMessage is one parked secondary effect awaiting retry.
type OutboxMessage struct {
	ID          id.ID        `db:"id"`
	Kind        string       `db:"kind"` // effect kind, e.g. "ledger_post"
	Payload     []byte       `db:"payload"`
	Status      OutboxStatus `db:"status"`
	RetryCount  int          `db:"retry_count"`
	LastError   *string      `db:"last_error"`
	NextRetryAt *time.Time   `db:"next_retry_at"`
	CreatedAt   time.Time    `db:"created_at"`
	ProcessedAt *time.Time   `db:"processed_at"`
}

// OutboxWriter parks failed effects in sys_outbox.
// Implements effects.OutboxWriter.
type OutboxWriter struct {
	txManager *TxManager
}

// NewOutboxWriter creates an outbox writer.
func NewOutboxWriter(txManager *TxManager) *OutboxWriter {
	return &OutboxWriter{txManager: txManager}
}

// Enqueue inserts a pending message. Works inside or outside a
// transaction; effects are dispatched after commit, so the usual path
// has no surrounding transaction.
func (w *OutboxWriter) Enqueue(ctx context.Context, kind string, payload []byte) error {
	q := w.txManager.GetQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO sys_outbox (id, kind, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id.New(), kind, payload, OutboxStatusPending, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler retries a parked effect.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay drains pending messages. Run by the effects relay worker.
type OutboxRelay struct {
	pool      *pgxpool.Pool
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(pool *pgxpool.Pool, batchSize int, handler OutboxHandler) *OutboxRelay {
	return &OutboxRelay{
		pool:      pool,
		batchSize: batchSize,
		handler:   handler,
	}
}

// ProcessBatch fetches and processes due messages. The fetch holds row
// locks for the duration of the batch so concurrent relays skip each
// other's messages. Returns the number of successfully processed messages.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin relay transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
		SELECT id, kind, payload, status, retry_count, last_error,
		       next_retry_at, created_at, processed_at
		FROM sys_outbox
		WHERE status = $1
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, OutboxStatusPending, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox messages: %w", err)
	}

	var messages []*OutboxMessage
	for rows.Next() {
		var msg OutboxMessage
		err := rows.Scan(
			&msg.ID, &msg.Kind, &msg.Payload, &msg.Status, &msg.RetryCount,
			&msg.LastError, &msg.NextRetryAt, &msg.CreatedAt, &msg.ProcessedAt,
		)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, &msg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox messages: %w", err)
	}

	processed := 0
	for _, msg := range messages {
		if err := r.processMessage(ctx, tx, msg); err != nil {
			logger.Warn(ctx, "outbox message retry failed",
				"id", msg.ID,
				"kind", msg.Kind,
				"retry_count", msg.RetryCount+1,
				"error", err,
			)
			continue
		}
		processed++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit relay transaction: %w", err)
	}
	return processed, nil
}

// processMessage retries a single message, applying exponential backoff
// on failure and flipping to failed after maxOutboxRetries.
func (r *OutboxRelay) processMessage(ctx context.Context, tx pgx.Tx, msg *OutboxMessage) error {
	err := r.handler.Handle(ctx, msg)

	if err != nil {
		nextRetry := time.Now().Add(time.Duration(msg.RetryCount+1) * time.Minute)
		errStr := err.Error()

		_, updateErr := tx.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = CASE WHEN retry_count + 1 >= $3 THEN $4 ELSE status END
			WHERE id = $5
		`, errStr, nextRetry, maxOutboxRetries, OutboxStatusFailed, msg.ID)

		if updateErr != nil {
			return fmt.Errorf("update failed message: %w", updateErr)
		}
		return err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE sys_outbox
		SET status = $1, processed_at = $2
		WHERE id = $3
	`, OutboxStatusProcessed, now, msg.ID)

	return err
}

// MoveToDLQ moves exhausted messages to the dead letter table.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1 AND retry_count >= $2
			RETURNING id, kind, payload, retry_count, last_error, created_at
		)
		INSERT INTO sys_outbox_dlq (id, kind, payload, retry_count, failure_reason, created_at, failed_at)
		SELECT id, kind, payload, retry_count, last_error, created_at, NOW() FROM moved
	`, OutboxStatusFailed, maxOutboxRetries)

	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return result.RowsAffected(), nil
}
