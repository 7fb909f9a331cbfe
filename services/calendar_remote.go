package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/ringboard/ringboard/db"
)

// RemoteCalendarStore is the authoritative calendar tier, backed by the
// calendar_events table in Postgres.
type RemoteCalendarStore struct {
	PG *sql.DB
}

func NewRemoteCalendarStore(pg *sql.DB) *RemoteCalendarStore {
	return &RemoteCalendarStore{PG: pg}
}

// IsConfigured reports whether the remote tier can be attempted.
func (s *RemoteCalendarStore) IsConfigured() bool {
	return s != nil && s.PG != nil
}

// describeStoreError appends the driver's detail and hint strings so write
// failures reach the caller with the store's own diagnosis.
func describeStoreError(op string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok {
		msg := fmt.Sprintf("%s: %s", op, pqErr.Message)
		if pqErr.Detail != "" {
			msg += " (" + pqErr.Detail + ")"
		}
		if pqErr.Hint != "" {
			msg += " (hint: " + pqErr.Hint + ")"
		}
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}

const calendarEventColumns = `id, title, description, location, start_time, end_time, all_day, color, metadata`

func scanCalendarEvent(row rowScanner) (db.CalendarEvent, error) {
	var event db.CalendarEvent
	var description, location, color sql.NullString
	var metadata []byte

	err := row.Scan(&event.ID, &event.Title, &description, &location,
		&event.Start, &event.End, &event.AllDay, &color, &metadata)
	if err != nil {
		return event, err
	}

	event.Description = description.String
	event.Location = location.String
	event.Color = color.String
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &event.Metadata)
	}
	return event, nil
}

// List returns events whose [start_time, end_time] falls inside the query
// window, ordered ascending by start time.
func (s *RemoteCalendarStore) List(ctx context.Context, start, end time.Time) ([]db.CalendarEvent, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT `+calendarEventColumns+`
		FROM calendar_events
		WHERE start_time >= $1 AND end_time <= $2
		ORDER BY start_time ASC
	`, start, end)
	if err != nil {
		return nil, describeStoreError("failed to fetch calendar events", err)
	}
	defer rows.Close()

	events := []db.CalendarEvent{}
	for rows.Next() {
		event, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, describeStoreError("failed to read calendar event", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Get returns a single event by id.
func (s *RemoteCalendarStore) Get(ctx context.Context, id string) (db.CalendarEvent, error) {
	row := s.PG.QueryRowContext(ctx, `
		SELECT `+calendarEventColumns+` FROM calendar_events WHERE id = $1
	`, id)
	event, err := scanCalendarEvent(row)
	if err != nil {
		return event, describeStoreError("failed to fetch calendar event", err)
	}
	return event, nil
}

// Insert creates an event; the store assigns the externally visible id.
func (s *RemoteCalendarStore) Insert(ctx context.Context, input db.CreateCalendarEventRequest) (db.CalendarEvent, error) {
	metadata, err := json.Marshal(orEmptyMap(input.Metadata))
	if err != nil {
		return db.CalendarEvent{}, fmt.Errorf("failed to encode event metadata: %w", err)
	}

	row := s.PG.QueryRowContext(ctx, `
		INSERT INTO calendar_events (title, description, location, start_time, end_time, all_day, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+calendarEventColumns+`
	`, input.Title, nullIfEmpty(input.Description), nullIfEmpty(input.Location),
		input.Start, input.End, input.AllDay, metadata)

	event, err := scanCalendarEvent(row)
	if err != nil {
		return event, describeStoreError("failed to create calendar event", err)
	}
	return event, nil
}

// Update applies a partial update and returns the stored record. An empty
// update reads the current row back unchanged.
func (s *RemoteCalendarStore) Update(ctx context.Context, id string, updates db.UpdateCalendarEventRequest) (db.CalendarEvent, error) {
	setClauses := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if updates.Title != nil {
		setClauses = append(setClauses, "title = "+arg(*updates.Title))
	}
	if updates.Description != nil {
		setClauses = append(setClauses, "description = "+arg(nullIfEmpty(*updates.Description)))
	}
	if updates.Location != nil {
		setClauses = append(setClauses, "location = "+arg(nullIfEmpty(*updates.Location)))
	}
	if updates.Start != nil {
		setClauses = append(setClauses, "start_time = "+arg(*updates.Start))
	}
	if updates.End != nil {
		setClauses = append(setClauses, "end_time = "+arg(*updates.End))
	}
	if updates.AllDay != nil {
		setClauses = append(setClauses, "all_day = "+arg(*updates.AllDay))
	}
	if updates.Metadata != nil {
		metadata, err := json.Marshal(updates.Metadata)
		if err != nil {
			return db.CalendarEvent{}, fmt.Errorf("failed to encode event metadata: %w", err)
		}
		setClauses = append(setClauses, "metadata = "+arg(metadata))
	}

	if len(setClauses) == 0 {
		return s.Get(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	query := "UPDATE calendar_events SET "
	for i, clause := range setClauses {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = " + arg(id) + " RETURNING " + calendarEventColumns

	event, err := scanCalendarEvent(s.PG.QueryRowContext(ctx, query, args...))
	if err != nil {
		return event, describeStoreError("failed to update calendar event", err)
	}
	return event, nil
}

// Delete removes an event by id.
func (s *RemoteCalendarStore) Delete(ctx context.Context, id string) error {
	if _, err := s.PG.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, id); err != nil {
		return describeStoreError("failed to delete calendar event", err)
	}
	return nil
}

// Upsert writes an event preserving its id, used when mirroring events that
// originated in another tier.
func (s *RemoteCalendarStore) Upsert(ctx context.Context, event db.CalendarEvent) error {
	metadata, err := json.Marshal(orEmptyMap(event.Metadata))
	if err != nil {
		return fmt.Errorf("failed to encode event metadata: %w", err)
	}

	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO calendar_events (id, title, description, location, start_time, end_time, all_day, color, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			all_day = EXCLUDED.all_day,
			color = EXCLUDED.color,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`, event.ID, event.Title, nullIfEmpty(event.Description), nullIfEmpty(event.Location),
		event.Start, event.End, event.AllDay, nullIfEmpty(event.Color), metadata)
	if err != nil {
		return describeStoreError("failed to mirror calendar event", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orEmptyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
