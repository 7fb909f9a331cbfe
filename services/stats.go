package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ringboard/ringboard/db"
)

// StatsService serves the read-only dashboard data: summary counters, time
// series, paginated call events, engagement metrics, and the distinct
// customer count. With no database configured it answers from the mock
// source instead.
type StatsService struct {
	PG    *sql.DB
	Redis *redis.Client
}

func NewStatsService(pg *sql.DB, rdb *redis.Client) *StatsService {
	return &StatsService{PG: pg, Redis: rdb}
}

const statsCacheTTL = 30 * time.Second

// cacheGet loads a cached value. Redis being absent or failing is never an
// error, just a miss.
func (s *StatsService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.Redis == nil {
		return false
	}
	raw, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Printf("Stats: dropping unreadable cache entry %s: %v", key, err)
		return false
	}
	return true
}

func (s *StatsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, raw, statsCacheTTL).Err(); err != nil {
		log.Printf("Stats: cache write %s failed: %v", key, err)
	}
}

// GetSummaryStats scans the calls table and reduces it in memory. There is
// no incremental maintenance; the scan is the source of truth.
func (s *StatsService) GetSummaryStats(ctx context.Context) (db.SummaryStats, error) {
	if s.PG == nil {
		return mockSummaryStats(), nil
	}

	var stats db.SummaryStats
	if s.cacheGet(ctx, "ringboard:summary", &stats) {
		return stats, nil
	}

	rows, err := s.PG.QueryContext(ctx, `SELECT status, duration_seconds, timestamp FROM calls`)
	if err != nil {
		return stats, describeStoreError("failed to fetch calls", err)
	}
	defer rows.Close()

	var answeredDurations []int
	var lastUpdated time.Time
	for rows.Next() {
		var status string
		var duration int
		var timestamp time.Time
		if err := rows.Scan(&status, &duration, &timestamp); err != nil {
			return stats, fmt.Errorf("failed to read call row: %w", err)
		}

		stats.TotalCalls++
		switch status {
		case "answered":
			stats.AnsweredCalls++
			if duration > 0 {
				answeredDurations = append(answeredDurations, duration)
			}
		case "missed":
			stats.MissedCalls++
		}
		if timestamp.After(lastUpdated) {
			lastUpdated = timestamp
		}
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to read call rows: %w", err)
	}

	if stats.TotalCalls == 0 {
		stats.LastUpdated = time.Now().UTC()
		return stats, nil
	}

	for _, d := range answeredDurations {
		stats.TotalDuration += d
	}
	if len(answeredDurations) > 0 {
		stats.AverageDuration = int(float64(stats.TotalDuration)/float64(len(answeredDurations)) + 0.5)
	}
	stats.LastUpdated = lastUpdated

	s.cacheSet(ctx, "ringboard:summary", stats)
	return stats, nil
}

// ListEvents pages through call records, newest first, with optional status
// and direction filters.
func (s *StatsService) ListEvents(ctx context.Context, page, pageSize int, status, direction string) (db.EventsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if s.PG == nil {
		return mockEvents(page, pageSize, status, direction), nil
	}

	where := ""
	args := []interface{}{}
	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		if where == "" {
			where = fmt.Sprintf(" WHERE %s = $%d", column, len(args))
		} else {
			where += fmt.Sprintf(" AND %s = $%d", column, len(args))
		}
	}
	addFilter("status", status)
	addFilter("direction", direction)

	var total int
	if err := s.PG.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`+where, args...).Scan(&total); err != nil {
		return db.EventsResponse{}, describeStoreError("failed to count calls", err)
	}

	limitArgs := append(args, pageSize, (page-1)*pageSize)
	rows, err := s.PG.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, phone_number, direction, status, duration_seconds, timestamp, contact_name, notes
		FROM calls%s
		ORDER BY timestamp DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2), limitArgs...)
	if err != nil {
		return db.EventsResponse{}, describeStoreError("failed to fetch calls", err)
	}
	defer rows.Close()

	events := []db.PhoneEvent{}
	for rows.Next() {
		var event db.PhoneEvent
		var contactName, notes sql.NullString
		if err := rows.Scan(&event.ID, &event.PhoneNumber, &event.Direction, &event.Status,
			&event.Duration, &event.Timestamp, &contactName, &notes); err != nil {
			return db.EventsResponse{}, fmt.Errorf("failed to read call row: %w", err)
		}
		event.ContactName = contactName.String
		event.Notes = notes.String
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return db.EventsResponse{}, fmt.Errorf("failed to read call rows: %w", err)
	}

	return db.EventsResponse{
		Events:   events,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  total > page*pageSize,
	}, nil
}

// GetEngagementMetrics returns today's engagement row, or zero defaults when
// no row exists yet.
func (s *StatsService) GetEngagementMetrics(ctx context.Context) (db.EngagementMetrics, error) {
	if s.PG == nil {
		return mockEngagementMetrics(), nil
	}

	var metrics db.EngagementMetrics
	if s.cacheGet(ctx, "ringboard:engagement", &metrics) {
		return metrics, nil
	}

	today := time.Now().UTC().Format("2006-01-02")
	err := s.PG.QueryRowContext(ctx, `
		SELECT appointments_via_agent, whatsapp_conversations, whatsapp_appointments, notes_count_today, last_updated
		FROM engagement_metrics
		WHERE metric_date = $1
		ORDER BY last_updated DESC
		LIMIT 1
	`, today).Scan(&metrics.AppointmentsViaAgent, &metrics.WhatsappConversations,
		&metrics.WhatsappAppointments, &metrics.NotesCountToday, &metrics.LastUpdated)
	if err == sql.ErrNoRows {
		metrics.LastUpdated = time.Now().UTC()
		return metrics, nil
	}
	if err != nil {
		return metrics, describeStoreError("failed to fetch engagement metrics", err)
	}

	s.cacheSet(ctx, "ringboard:engagement", metrics)
	return metrics, nil
}

// GetTotalCustomers counts distinct phone numbers. A failing or empty query
// degrades to the historical placeholder rather than erroring.
func (s *StatsService) GetTotalCustomers(ctx context.Context) int {
	const fallback = 1500
	if s.PG == nil {
		return fallback
	}

	var count int
	err := s.PG.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT phone_number) FROM calls WHERE phone_number IS NOT NULL
	`).Scan(&count)
	if err != nil {
		log.Printf("Stats: customer count failed: %v", err)
		return fallback
	}
	if count == 0 {
		return fallback
	}
	return count
}
