package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mpontes/clinicore/libs/db"
	otelx "github.com/mpontes/clinicore/libs/otel"
)

// EventNotificationDelivered records that a feed entry was persisted (and,
// when enabled, an email copy attempted). No in-repo consumer exists; the
// event is published for external audit pipelines.
const EventNotificationDelivered = "notifier.notification.delivered.v1"

// Delivered describes one processed notification.
type Delivered struct {
	NotificationID string `json:"notification_id"`
	SourceTopic    string `json:"source_topic"`
	Category       string `json:"category"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Emailed        bool   `json:"emailed"`
	DeliveredAt    string `json:"delivered_at"`
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertDelivered writes a delivered event in its own transaction. The feed
// entry is already committed by the time this runs, so callers treat a
// failure here as log-and-continue.
func (r *Repository) InsertDelivered(ctx context.Context, d Delivered) error {
	if d.DeliveredAt == "" {
		d.DeliveredAt = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ('notification', $1, $2, $3, $4, $5)
	`, d.NotificationID, EventNotificationDelivered, payload, traceparent, tracestate)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type Record struct {
	ID          int64
	EventID     string
	AggregateID string
	EventType   string
	Payload     []byte
	Traceparent string
	Tracestate  string
}

func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_id, event_type, payload, traceparent, tracestate
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateID, &rcd.EventType, &rcd.Payload, &rcd.Traceparent, &rcd.Tracestate); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}
