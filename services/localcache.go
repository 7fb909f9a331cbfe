package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ringboard/ringboard/db"
	_ "modernc.org/sqlite"
)

// EventCache is the last-resort calendar tier: a local SQLite mirror of
// calendar events keyed by event id. It has no expiry and no reconciliation
// policy; the remote store stays authoritative whenever it is reachable.
type EventCache struct {
	DB *sql.DB
}

const eventCacheSchema = `
CREATE TABLE IF NOT EXISTS calendar_events (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT,
	location TEXT,
	start_time TEXT NOT NULL,
	end_time TEXT NOT NULL,
	all_day BOOLEAN NOT NULL DEFAULT 0,
	color TEXT,
	metadata TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_cache_events_range ON calendar_events(start_time, end_time);
`

// NewEventCache opens (or creates) the mirror database at path.
func NewEventCache(path string) (*EventCache, error) {
	sqlite, err := sql.Open("sqlite", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open event cache: %w", err)
	}
	if _, err := sqlite.Exec(eventCacheSchema); err != nil {
		sqlite.Close()
		return nil, fmt.Errorf("failed to apply event cache schema: %w", err)
	}
	return &EventCache{DB: sqlite}, nil
}

func (c *EventCache) Close() error {
	return c.DB.Close()
}

// cacheTimeLayout is RFC3339 UTC with a fixed-width nanosecond fraction.
// The width never varies, so the stored strings compare lexicographically
// in range queries and sub-second precision survives the round trip.
const cacheTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func cacheTime(t time.Time) string {
	return t.UTC().Format(cacheTimeLayout)
}

// List returns the cached events inside [from, to], ordered by start time.
// Read errors degrade to an empty slice.
func (c *EventCache) List(from, to time.Time) []db.CalendarEvent {
	rows, err := c.DB.Query(`
		SELECT id, title, description, location, start_time, end_time, all_day, color, metadata
		FROM calendar_events
		WHERE start_time >= ? AND end_time <= ?
		ORDER BY start_time ASC
	`, cacheTime(from), cacheTime(to))
	if err != nil {
		log.Printf("Event cache: list failed: %v", err)
		return []db.CalendarEvent{}
	}
	defer rows.Close()

	events := []db.CalendarEvent{}
	for rows.Next() {
		event, err := scanCachedEvent(rows)
		if err != nil {
			log.Printf("Event cache: skipping unreadable row: %v", err)
			continue
		}
		events = append(events, event)
	}
	return events
}

// Get returns the cached event with the given id.
func (c *EventCache) Get(id string) (db.CalendarEvent, error) {
	row := c.DB.QueryRow(`
		SELECT id, title, description, location, start_time, end_time, all_day, color, metadata
		FROM calendar_events WHERE id = ?
	`, id)
	return scanCachedEvent(row)
}

// Upsert writes an event into the mirror, replacing any previous row with
// the same id.
func (c *EventCache) Upsert(event db.CalendarEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode event metadata: %w", err)
	}
	_, err = c.DB.Exec(`
		INSERT INTO calendar_events (id, title, description, location, start_time, end_time, all_day, color, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			location = excluded.location,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			all_day = excluded.all_day,
			color = excluded.color,
			metadata = excluded.metadata
	`, event.ID, event.Title, event.Description, event.Location,
		cacheTime(event.Start), cacheTime(event.End), event.AllDay, event.Color, string(metadata))
	if err != nil {
		return fmt.Errorf("failed to cache event %s: %w", event.ID, err)
	}
	return nil
}

// UpsertAll mirrors a batch of events. Per-row failures are logged and the
// rest of the batch still lands; the mirror is best-effort, not atomic.
func (c *EventCache) UpsertAll(events []db.CalendarEvent) {
	for _, event := range events {
		if err := c.Upsert(event); err != nil {
			log.Printf("Event cache: %v", err)
		}
	}
}

// Delete removes the event with the given id. Deleting an absent id is a
// no-op so the orchestrator's final cleanup step stays idempotent.
func (c *EventCache) Delete(id string) error {
	if _, err := c.DB.Exec(`DELETE FROM calendar_events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete cached event %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCachedEvent(row rowScanner) (db.CalendarEvent, error) {
	var event db.CalendarEvent
	var description, location, color sql.NullString
	var startTime, endTime, metadata string

	err := row.Scan(&event.ID, &event.Title, &description, &location,
		&startTime, &endTime, &event.AllDay, &color, &metadata)
	if err != nil {
		return event, err
	}

	event.Description = description.String
	event.Location = location.String
	event.Color = color.String

	if event.Start, err = time.Parse(time.RFC3339, startTime); err != nil {
		return event, fmt.Errorf("bad start_time for event %s: %w", event.ID, err)
	}
	if event.End, err = time.Parse(time.RFC3339, endTime); err != nil {
		return event, fmt.Errorf("bad end_time for event %s: %w", event.ID, err)
	}
	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &event.Metadata); err != nil {
			log.Printf("Event cache: dropping unreadable metadata for event %s: %v", event.ID, err)
			event.Metadata = nil
		}
	}
	return event, nil
}
