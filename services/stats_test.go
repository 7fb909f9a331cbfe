package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSummaryStatsEmptyTable(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	mockDB.ExpectQuery("SELECT status, duration_seconds, timestamp FROM calls").
		WillReturnRows(sqlmock.NewRows([]string{"status", "duration_seconds", "timestamp"}))

	svc := NewStatsService(pg, nil)
	stats, err := svc.GetSummaryStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalCalls)
	assert.Equal(t, 0, stats.AnsweredCalls)
	assert.Equal(t, 0, stats.MissedCalls)
	assert.Equal(t, 0, stats.AverageDuration)
	assert.Equal(t, 0, stats.TotalDuration)
	assert.False(t, stats.LastUpdated.IsZero())
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGetSummaryStatsReducesCalls(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT status, duration_seconds, timestamp FROM calls").
		WillReturnRows(sqlmock.NewRows([]string{"status", "duration_seconds", "timestamp"}).
			AddRow("answered", 120, base).
			AddRow("answered", 61, base.Add(time.Hour)).
			AddRow("answered", 0, base.Add(2*time.Hour)).
			AddRow("missed", 0, base.Add(3*time.Hour)).
			AddRow("voicemail", 0, base.Add(4*time.Hour)))

	svc := NewStatsService(pg, nil)
	stats, err := svc.GetSummaryStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalCalls)
	assert.Equal(t, 3, stats.AnsweredCalls)
	assert.Equal(t, 1, stats.MissedCalls)
	assert.Equal(t, 181, stats.TotalDuration)
	// mean of the answered calls with a duration, rounded: (120+61)/2 = 90.5 -> 91
	assert.Equal(t, 91, stats.AverageDuration)
	assert.True(t, stats.LastUpdated.Equal(base.Add(4*time.Hour)))
}

func TestGetSummaryStatsMockMode(t *testing.T) {
	svc := NewStatsService(nil, nil)
	stats, err := svc.GetSummaryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1247, stats.TotalCalls)
	assert.Equal(t, 892, stats.AnsweredCalls)
}

func TestListEventsAppliesFilters(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery(`SELECT COUNT\(\*\) FROM calls WHERE status = \$1 AND direction = \$2`).
		WithArgs("missed", "inbound").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(27))
	mockDB.ExpectQuery("SELECT id, phone_number, direction, status, duration_seconds, timestamp, contact_name, notes").
		WithArgs("missed", "inbound", 25, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "phone_number", "direction", "status", "duration_seconds", "timestamp", "contact_name", "notes",
		}).AddRow("call-1", "+15550001111", "inbound", "missed", 0, base, "Dana", nil))

	svc := NewStatsService(pg, nil)
	resp, err := svc.ListEvents(context.Background(), 1, 25, "missed", "inbound")
	require.NoError(t, err)

	assert.Equal(t, 27, resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 25, resp.PageSize)
	assert.True(t, resp.HasMore)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "call-1", resp.Events[0].ID)
	assert.Equal(t, "Dana", resp.Events[0].ContactName)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestListEventsLastPageHasMoreFalse(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	mockDB.ExpectQuery(`SELECT COUNT\(\*\) FROM calls`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))
	mockDB.ExpectQuery("SELECT id, phone_number").
		WithArgs(25, 25).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "phone_number", "direction", "status", "duration_seconds", "timestamp", "contact_name", "notes",
		}))

	svc := NewStatsService(pg, nil)
	resp, err := svc.ListEvents(context.Background(), 2, 25, "", "")
	require.NoError(t, err)
	assert.False(t, resp.HasMore)
	assert.NotNil(t, resp.Events)
}

func TestGetSummaryStatsCacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT status, duration_seconds, timestamp FROM calls").
		WillReturnRows(sqlmock.NewRows([]string{"status", "duration_seconds", "timestamp"}).
			AddRow("answered", 120, base).
			AddRow("missed", 0, base.Add(time.Hour)))

	svc := NewStatsService(pg, rdb)
	first, err := svc.GetSummaryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalCalls)

	// The scan result landed in Redis with the cache TTL.
	assert.True(t, mr.Exists("ringboard:summary"))
	assert.Equal(t, statsCacheTTL, mr.TTL("ringboard:summary"))

	// Only one query was mocked: a second call must be served from the
	// cache or sqlmock would fail it.
	second, err := svc.GetSummaryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.TotalCalls, second.TotalCalls)
	assert.Equal(t, first.AnsweredCalls, second.AnsweredCalls)
	assert.Equal(t, first.TotalDuration, second.TotalDuration)
	assert.True(t, second.LastUpdated.Equal(first.LastUpdated))
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGetEngagementMetricsCacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	updated := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("FROM engagement_metrics").
		WillReturnRows(sqlmock.NewRows([]string{
			"appointments_via_agent", "whatsapp_conversations", "whatsapp_appointments", "notes_count_today", "last_updated",
		}).AddRow(4, 12, 3, 7, updated))

	svc := NewStatsService(pg, rdb)
	first, err := svc.GetEngagementMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, first.WhatsappConversations)
	assert.Equal(t, statsCacheTTL, mr.TTL("ringboard:engagement"))

	second, err := svc.GetEngagementMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.AppointmentsViaAgent, second.AppointmentsViaAgent)
	assert.Equal(t, first.NotesCountToday, second.NotesCountToday)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestStatsRedisUnreachableDegradesToScan(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  100 * time.Millisecond,
		ReadTimeout:  100 * time.Millisecond,
		WriteTimeout: 100 * time.Millisecond,
		MaxRetries:   -1,
	})
	defer rdb.Close()

	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT status, duration_seconds, timestamp FROM calls").
		WillReturnRows(sqlmock.NewRows([]string{"status", "duration_seconds", "timestamp"}).
			AddRow("answered", 90, base))

	// A dead Redis is a miss, never an error: the scan still answers.
	svc := NewStatsService(pg, rdb)
	stats, err := svc.GetSummaryStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCalls)
	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestGetEngagementMetricsNoRowDefaults(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	mockDB.ExpectQuery("FROM engagement_metrics").
		WillReturnError(sql.ErrNoRows)

	svc := NewStatsService(pg, nil)
	metrics, err := svc.GetEngagementMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.AppointmentsViaAgent)
	assert.Equal(t, 0, metrics.WhatsappConversations)
	assert.False(t, metrics.LastUpdated.IsZero())
}

func TestGetTotalCustomersFallback(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	mockDB.ExpectQuery("SELECT COUNT\\(DISTINCT phone_number\\) FROM calls").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	svc := NewStatsService(pg, nil)
	assert.Equal(t, 1500, svc.GetTotalCustomers(context.Background()))

	// No database at all degrades the same way.
	assert.Equal(t, 1500, NewStatsService(nil, nil).GetTotalCustomers(context.Background()))
}
