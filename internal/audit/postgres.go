package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Schema creates the table the Postgres sink writes to.
const Schema = `CREATE TABLE IF NOT EXISTS audit_log (
	id         uuid PRIMARY KEY,
	at         timestamptz NOT NULL,
	operation  text NOT NULL,
	table_name text NOT NULL,
	payload    jsonb
)`

// Execer is the subset of *pgxpool.Pool the sink needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EnsureSchema creates the audit table if it does not exist.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// PostgresSink mirrors entries into Postgres in batches. Write only enqueues;
// a background goroutine started by Start flushes when the batch is full or
// the flush interval elapses. Entries are dropped when the queue is full.
type PostgresSink struct {
	db         Execer
	logger     *slog.Logger
	queue      chan Entry
	batchSize  int
	flushEvery time.Duration
	done       chan struct{}
}

// NewPostgresSink constructs a sink. Start must be called before entries are written out.
func NewPostgresSink(db Execer, logger *slog.Logger, queueSize, batchSize int, flushEvery time.Duration) *PostgresSink {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &PostgresSink{
		db:         db,
		logger:     logger,
		queue:      make(chan Entry, queueSize),
		batchSize:  batchSize,
		flushEvery: flushEvery,
		done:       make(chan struct{}),
	}
}

// Write enqueues e without blocking.
func (p *PostgresSink) Write(e Entry) {
	select {
	case p.queue <- e:
	default:
		p.logger.Warn("audit queue full, dropping entry", "id", e.ID.String(), "table", e.Table)
	}
}

// Start runs the flush loop until ctx is cancelled. Whatever is queued at
// that point is flushed once more with a fresh context before Done closes.
func (p *PostgresSink) Start(ctx context.Context) {
	go func() {
		defer close(p.done)

		batch := make([]Entry, 0, p.batchSize)
		t := time.NewTicker(p.flushEvery)
		defer t.Stop()

		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				return
			}
			n, err := p.insertBatch(ctx, batch)
			if err != nil {
				p.logger.Error("audit batch insert failed", "err", err, "dropped", len(batch))
			} else {
				p.logger.Debug("audit batch inserted", "inserted", n, "size", len(batch))
			}
			batch = batch[:0]
		}

		for {
			select {
			case <-ctx.Done():
			drain:
				for {
					select {
					case e := <-p.queue:
						batch = append(batch, e)
					default:
						break drain
					}
				}
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				flush(shutdownCtx)
				cancel()
				return
			case e := <-p.queue:
				batch = append(batch, e)
				if len(batch) >= p.batchSize {
					flush(ctx)
				}
			case <-t.C:
				flush(ctx)
			}
		}
	}()
}

// Done is closed once the flush loop has exited.
func (p *PostgresSink) Done() <-chan struct{} {
	return p.done
}

// insertBatch writes entries with ON CONFLICT DO NOTHING so replays are harmless.
func (p *PostgresSink) insertBatch(ctx context.Context, entries []Entry) (int64, error) {
	const cols = 5
	placeholders := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*cols)

	for i, e := range entries {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			payload = []byte("null")
		}
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d::jsonb)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, e.ID.String(), e.At, string(e.Operation), e.Table, string(payload))
	}

	sql := "INSERT INTO audit_log (id, at, operation, table_name, payload) VALUES " +
		strings.Join(placeholders, ",") +
		" ON CONFLICT (id) DO NOTHING"

	tag, err := p.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert audit batch: %w", err)
	}
	return tag.RowsAffected(), nil
}
