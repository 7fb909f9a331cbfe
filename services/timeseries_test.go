package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketStart(t *testing.T) {
	// Wednesday afternoon with sub-hour detail.
	ts := time.Date(2024, 1, 3, 15, 42, 17, 0, time.UTC)

	tests := []struct {
		period string
		want   time.Time
	}{
		{PeriodHour, time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)},
		{PeriodDay, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)},
		{PeriodWeek, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)}, // preceding Sunday
		{PeriodMonth, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.period, func(t *testing.T) {
			assert.True(t, BucketStart(ts, tc.period).Equal(tc.want),
				"got %v, want %v", BucketStart(ts, tc.period), tc.want)
		})
	}
}

func TestBucketStartSundayIsItsOwnWeek(t *testing.T) {
	sunday := time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC)
	assert.True(t, BucketStart(sunday, PeriodWeek).Equal(time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)))
}

// expectDerivedSeries wires the empty-precomputed-table path followed by the
// raw call rows the derivation reads.
func expectDerivedSeries(mockDB sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mockDB.ExpectQuery("FROM timeseries").
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "value"}))
	mockDB.ExpectQuery("FROM calls").
		WillReturnRows(rows)
}

func TestGetTimeSeriesDerivesCallCounts(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	expectDerivedSeries(mockDB, sqlmock.NewRows([]string{"timestamp", "status", "duration_seconds"}).
		AddRow(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), "answered", 120).
		AddRow(time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC), "missed", 0))

	svc := NewStatsService(pg, nil)
	resp, err := svc.GetTimeSeries(context.Background(), MetricCalls, PeriodHour)
	require.NoError(t, err)

	assert.Equal(t, MetricCalls, resp.Metric)
	assert.Equal(t, PeriodHour, resp.Period)
	require.Len(t, resp.Data, 1, "both calls share the 10:00 bucket")
	assert.True(t, resp.Data[0].Timestamp.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, float64(2), resp.Data[0].Value)
}

func TestGetTimeSeriesDerivesDurationAndRate(t *testing.T) {
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"timestamp", "status", "duration_seconds"}).
			AddRow(time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC), "answered", 120).
			AddRow(time.Date(2024, 1, 1, 10, 20, 0, 0, time.UTC), "answered", 61).
			AddRow(time.Date(2024, 1, 1, 10, 40, 0, 0, time.UTC), "missed", 0).
			AddRow(time.Date(2024, 1, 1, 10, 50, 0, 0, time.UTC), "missed", 0)
	}

	t.Run("duration is the mean of answered calls", func(t *testing.T) {
		pg, mockDB, err := sqlmock.New()
		require.NoError(t, err)
		defer pg.Close()
		expectDerivedSeries(mockDB, rows())

		resp, err := NewStatsService(pg, nil).GetTimeSeries(context.Background(), MetricDuration, PeriodHour)
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		// (120+61)/2 = 90.5 rounded
		assert.Equal(t, float64(91), resp.Data[0].Value)
	})

	t.Run("answered_rate is a percentage", func(t *testing.T) {
		pg, mockDB, err := sqlmock.New()
		require.NoError(t, err)
		defer pg.Close()
		expectDerivedSeries(mockDB, rows())

		resp, err := NewStatsService(pg, nil).GetTimeSeries(context.Background(), MetricAnsweredRate, PeriodHour)
		require.NoError(t, err)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, float64(50), resp.Data[0].Value)
	})
}

func TestGetTimeSeriesBucketsAreSorted(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	expectDerivedSeries(mockDB, sqlmock.NewRows([]string{"timestamp", "status", "duration_seconds"}).
		AddRow(time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), "answered", 30).
		AddRow(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), "missed", 0).
		AddRow(time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), "answered", 45))

	resp, err := NewStatsService(pg, nil).GetTimeSeries(context.Background(), MetricCalls, PeriodDay)
	require.NoError(t, err)
	require.Len(t, resp.Data, 3)
	for i := 1; i < len(resp.Data); i++ {
		assert.True(t, resp.Data[i-1].Timestamp.Before(resp.Data[i].Timestamp))
	}
}

func TestGetTimeSeriesPrefersPrecomputedRows(t *testing.T) {
	pg, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	defer pg.Close()

	mockDB.ExpectQuery("FROM timeseries").
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "value"}).
			AddRow(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 12.0))

	resp, err := NewStatsService(pg, nil).GetTimeSeries(context.Background(), MetricCalls, PeriodDay)
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 12.0, resp.Data[0].Value)
	assert.NoError(t, mockDB.ExpectationsWereMet(), "no raw-call fallback when precomputed rows exist")
}

func TestGetTimeSeriesDefaultsInvalidParams(t *testing.T) {
	svc := NewStatsService(nil, nil)
	resp, err := svc.GetTimeSeries(context.Background(), "bogus", "fortnight")
	require.NoError(t, err)
	assert.Equal(t, MetricCalls, resp.Metric)
	assert.Equal(t, PeriodDay, resp.Period)
	assert.NotEmpty(t, resp.Data)
}
