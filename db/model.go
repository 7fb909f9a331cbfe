package db

import "time"

// ===========================
// CALL MODELS
// ===========================

// PhoneEvent represents a single call record. Rows are immutable once
// ingested; the dashboard only ever reads them.
type PhoneEvent struct {
	ID          string    `json:"id"`
	PhoneNumber string    `json:"phoneNumber"`
	Direction   string    `json:"direction"` // inbound, outbound
	Status      string    `json:"status"`    // answered, missed, voicemail, busy, failed
	Duration    int       `json:"duration"`  // seconds, 0 if not answered
	Timestamp   time.Time `json:"timestamp"`
	ContactName string    `json:"contactName,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// SummaryStats are aggregate call counters derived by a full scan of the
// calls table.
type SummaryStats struct {
	TotalCalls      int       `json:"totalCalls"`
	AnsweredCalls   int       `json:"answeredCalls"`
	MissedCalls     int       `json:"missedCalls"`
	AverageDuration int       `json:"averageDuration"` // seconds
	TotalDuration   int       `json:"totalDuration"`   // seconds
	LastUpdated     time.Time `json:"lastUpdated"`
}

// TimeSeriesPoint is one (timestamp, value) sample of a named metric.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Label     string    `json:"label,omitempty"`
}

type TimeSeriesResponse struct {
	Data      []TimeSeriesPoint `json:"data"`
	Metric    string            `json:"metric"` // calls, duration, answered_rate
	Period    string            `json:"period"` // hour, day, week, month
	StartDate time.Time         `json:"startDate"`
	EndDate   time.Time         `json:"endDate"`
}

type EventsResponse struct {
	Events   []PhoneEvent `json:"events"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
	HasMore  bool         `json:"hasMore"`
}

// EngagementMetrics holds the per-day outreach counters, one row per day.
type EngagementMetrics struct {
	AppointmentsViaAgent  int       `json:"appointmentsViaAgent"`
	WhatsappConversations int       `json:"whatsappConversations"`
	WhatsappAppointments  int       `json:"whatsappAppointments"`
	NotesCountToday       int       `json:"notesCountToday"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// ===========================
// CALENDAR MODELS
// ===========================

// CalendarEvent is the unit the fallback tiers agree on. The remote store is
// authoritative when reachable; the local mirror is a best-effort shadow.
type CalendarEvent struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Start       time.Time              `json:"start"`
	End         time.Time              `json:"end"`
	Description string                 `json:"description,omitempty"`
	Location    string                 `json:"location,omitempty"`
	AllDay      bool                   `json:"allDay"`
	Color       string                 `json:"color,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

type CreateCalendarEventRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Start       time.Time              `json:"start" binding:"required"`
	End         time.Time              `json:"end" binding:"required"`
	Description string                 `json:"description"`
	Location    string                 `json:"location"`
	AllDay      bool                   `json:"allDay"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// UpdateCalendarEventRequest carries a partial update; nil fields are left
// untouched.
type UpdateCalendarEventRequest struct {
	Title       *string                `json:"title,omitempty"`
	Start       *time.Time             `json:"start,omitempty"`
	End         *time.Time             `json:"end,omitempty"`
	Description *string                `json:"description,omitempty"`
	Location    *string                `json:"location,omitempty"`
	AllDay      *bool                  `json:"allDay,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ===========================
// SETTINGS MODELS
// ===========================

// ChannelSettings configures one messaging integration.
type ChannelSettings struct {
	Enabled    bool   `json:"enabled"`
	Credential string `json:"credential,omitempty"`
	WebhookURL string `json:"webhookUrl,omitempty"`
}

type N8NSettings struct {
	CalendarWebhookURL string `json:"calendarWebhookUrl,omitempty"`
	TestWebhookURL     string `json:"testWebhookUrl,omitempty"`
}

// IntegrationSettings is the client-local settings record. There is no
// server authority for it and no schema versioning.
type IntegrationSettings struct {
	WhatsApp  ChannelSettings `json:"whatsapp"`
	Telegram  ChannelSettings `json:"telegram"`
	Instagram ChannelSettings `json:"instagram"`
	N8N       N8NSettings     `json:"n8n"`
}

// DefaultSettings returns the zero configuration with every channel disabled.
func DefaultSettings() IntegrationSettings {
	return IntegrationSettings{}
}
