package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edquest-hub/edquest-arena/internal/domain/shared"
)

// EventLogRepository appends domain events to the audit log. Wired as a
// dispatcher handler so every published event leaves a durable trace.
type EventLogRepository struct {
	conn *Connection
}

// NewEventLogRepository creates an event log repository.
func NewEventLogRepository(conn *Connection) *EventLogRepository {
	return &EventLogRepository{conn: conn}
}

// Append writes one event to the log.
func (r *EventLogRepository) Append(ctx context.Context, event shared.Event) error {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO event_log (event_type, aggregate_id, occurred_at, payload)
		VALUES ($1, $2, $3, $4)
	`, string(event.EventType()), event.AggregateID(), event.OccurredAt(), payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// LoggedEvent is a row read back from the event log.
type LoggedEvent struct {
	ID          int64
	EventType   string
	AggregateID string
	OccurredAt  time.Time
	Payload     map[string]interface{}
}

// Recent returns the newest events, most recent first.
func (r *EventLogRepository) Recent(ctx context.Context, limit int) ([]LoggedEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, event_type, aggregate_id, occurred_at, payload
		FROM event_log
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []LoggedEvent
	for rows.Next() {
		var e LoggedEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &e.OccurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ByAggregate returns the event history of one aggregate, oldest first.
func (r *EventLogRepository) ByAggregate(ctx context.Context, aggregateID string, limit int) ([]LoggedEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.Query(ctx, `
		SELECT id, event_type, aggregate_id, occurred_at, payload
		FROM event_log
		WHERE aggregate_id = $1
		ORDER BY occurred_at ASC
		LIMIT $2
	`, aggregateID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []LoggedEvent
	for rows.Next() {
		var e LoggedEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &e.OccurredAt, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
