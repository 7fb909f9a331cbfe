package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ringboard/ringboard/db"
)

// Valid metric and period names for the time-series endpoints.
const (
	MetricCalls        = "calls"
	MetricDuration     = "duration"
	MetricAnsweredRate = "answered_rate"

	PeriodHour  = "hour"
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// seriesWindow gives the lookback window rendered for each period.
func seriesWindow(period string, now time.Time) (time.Time, time.Time) {
	switch period {
	case PeriodHour:
		return now.AddDate(0, 0, -7), now
	case PeriodWeek:
		return now.AddDate(0, -6, 0), now
	default: // day, month
		return now.AddDate(0, -12, 0), now
	}
}

// GetTimeSeries reads the precomputed timeseries table for the metric and
// window. When the table has no matching rows, the series is derived on the
// fly from raw call records as a fallback path.
func (s *StatsService) GetTimeSeries(ctx context.Context, metric, period string) (db.TimeSeriesResponse, error) {
	switch metric {
	case MetricCalls, MetricDuration, MetricAnsweredRate:
	default:
		metric = MetricCalls
	}
	switch period {
	case PeriodHour, PeriodDay, PeriodWeek, PeriodMonth:
	default:
		period = PeriodDay
	}

	start, end := seriesWindow(period, time.Now().UTC())
	response := db.TimeSeriesResponse{
		Data:      []db.TimeSeriesPoint{},
		Metric:    metric,
		Period:    period,
		StartDate: start,
		EndDate:   end,
	}

	if s.PG == nil {
		response.Data = mockTimeSeriesPoints(end)
		return response, nil
	}

	rows, err := s.PG.QueryContext(ctx, `
		SELECT timestamp, value
		FROM timeseries
		WHERE metric = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC
	`, metric, start, end)
	if err != nil {
		return response, describeStoreError("failed to fetch timeseries data", err)
	}
	defer rows.Close()

	for rows.Next() {
		var point db.TimeSeriesPoint
		if err := rows.Scan(&point.Timestamp, &point.Value); err != nil {
			return response, fmt.Errorf("failed to read timeseries row: %w", err)
		}
		response.Data = append(response.Data, point)
	}
	if err := rows.Err(); err != nil {
		return response, fmt.Errorf("failed to read timeseries rows: %w", err)
	}

	if len(response.Data) > 0 {
		return response, nil
	}

	// No precomputed rows: derive from raw calls.
	points, err := s.deriveSeriesFromCalls(ctx, metric, period, start, end)
	if err != nil {
		return response, err
	}
	response.Data = points
	return response, nil
}

// callBucket accumulates one period's worth of calls.
type callBucket struct {
	calls    int
	answered int
	duration int
}

// deriveSeriesFromCalls buckets raw call rows into calendar-aligned periods
// and computes the requested metric per bucket. Buckets with no calls are
// absent from the output, not zero-filled.
func (s *StatsService) deriveSeriesFromCalls(ctx context.Context, metric, period string, start, end time.Time) ([]db.TimeSeriesPoint, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT timestamp, status, duration_seconds
		FROM calls
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY timestamp ASC
	`, start, end)
	if err != nil {
		return nil, describeStoreError("failed to fetch calls for timeseries", err)
	}
	defer rows.Close()

	buckets := map[time.Time]*callBucket{}
	for rows.Next() {
		var timestamp time.Time
		var status string
		var duration int
		if err := rows.Scan(&timestamp, &status, &duration); err != nil {
			return nil, fmt.Errorf("failed to read call row: %w", err)
		}

		key := BucketStart(timestamp, period)
		bucket := buckets[key]
		if bucket == nil {
			bucket = &callBucket{}
			buckets[key] = bucket
		}
		bucket.calls++
		if status == "answered" {
			bucket.answered++
			bucket.duration += duration
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call rows: %w", err)
	}

	points := make([]db.TimeSeriesPoint, 0, len(buckets))
	for key, bucket := range buckets {
		var value float64
		switch metric {
		case MetricCalls:
			value = float64(bucket.calls)
		case MetricDuration:
			if bucket.answered > 0 {
				value = float64(int(float64(bucket.duration)/float64(bucket.answered) + 0.5))
			}
		case MetricAnsweredRate:
			if bucket.calls > 0 {
				value = float64(bucket.answered) / float64(bucket.calls) * 100
			}
		}
		points = append(points, db.TimeSeriesPoint{Timestamp: key, Value: value})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}

// BucketStart snaps a timestamp to its calendar-aligned bucket boundary in
// UTC. Weeks start on Sunday; months on the first.
func BucketStart(t time.Time, period string) time.Time {
	t = t.UTC()
	switch period {
	case PeriodHour:
		return t.Truncate(time.Hour)
	case PeriodWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -int(day.Weekday()))
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}
