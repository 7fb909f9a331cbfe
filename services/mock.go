package services

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ringboard/ringboard/db"
)

// Mock data source, served when no database is configured so the dashboard
// renders without a backend.

func mockSummaryStats() db.SummaryStats {
	return db.SummaryStats{
		TotalCalls:      1247,
		AnsweredCalls:   892,
		MissedCalls:     355,
		AverageDuration: 187,
		TotalDuration:   166804,
		LastUpdated:     time.Now().UTC(),
	}
}

// mockTimeSeriesPoints generates hourly samples for the last 7 days with a
// gentle daily wave, seeded so repeated calls agree.
func mockTimeSeriesPoints(now time.Time) []db.TimeSeriesPoint {
	rng := rand.New(rand.NewSource(42))
	points := make([]db.TimeSeriesPoint, 0, 169)
	for i := 168; i >= 0; i-- {
		base := 10 + rng.Float64()*20
		value := math.Floor(base + math.Sin(float64(i)/24)*5)
		points = append(points, db.TimeSeriesPoint{
			Timestamp: now.Add(-time.Duration(i) * time.Hour).Truncate(time.Hour),
			Value:     value,
		})
	}
	return points
}

var mockContacts = []string{"John Doe", "Jane Smith", "Bob Johnson", "Alice Williams", ""}
var mockStatuses = []string{"answered", "missed", "voicemail", "busy"}
var mockDirections = []string{"inbound", "outbound"}

func mockPhoneEvents(count int) []db.PhoneEvent {
	rng := rand.New(rand.NewSource(7))
	now := time.Now().UTC()

	events := make([]db.PhoneEvent, 0, count)
	for i := 0; i < count; i++ {
		status := mockStatuses[rng.Intn(len(mockStatuses))]
		duration := 0
		if status == "answered" {
			duration = rng.Intn(600)
		}
		notes := ""
		if rng.Float64() > 0.7 {
			notes = "Important call"
		}
		events = append(events, db.PhoneEvent{
			ID:          fmt.Sprintf("event-%d", i+1),
			PhoneNumber: fmt.Sprintf("+1%d", 1000000000+rng.Int63n(9000000000)),
			Direction:   mockDirections[rng.Intn(len(mockDirections))],
			Status:      status,
			Duration:    duration,
			// Random time in the last 7 days; ordering is fixed below.
			Timestamp:   now.Add(-time.Duration(rng.Intn(168*3600)) * time.Second),
			ContactName: mockContacts[rng.Intn(len(mockContacts))],
			Notes:       notes,
		})
	}

	// Newest first
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			if events[j].Timestamp.After(events[i].Timestamp) {
				events[i], events[j] = events[j], events[i]
			}
		}
	}
	return events
}

func mockEvents(page, pageSize int, status, direction string) db.EventsResponse {
	all := mockPhoneEvents(50)

	filtered := all[:0:0]
	for _, event := range all {
		if status != "" && event.Status != status {
			continue
		}
		if direction != "" && event.Direction != direction {
			continue
		}
		filtered = append(filtered, event)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return db.EventsResponse{
		Events:   filtered[start:end],
		Total:    len(filtered),
		Page:     page,
		PageSize: pageSize,
		HasMore:  end < len(filtered),
	}
}

func mockEngagementMetrics() db.EngagementMetrics {
	return db.EngagementMetrics{
		AppointmentsViaAgent:  12,
		WhatsappConversations: 34,
		WhatsappAppointments:  8,
		NotesCountToday:       21,
		LastUpdated:           time.Now().UTC(),
	}
}
