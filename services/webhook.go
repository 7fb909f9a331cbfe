package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ringboard/ringboard/db"
)

// WebhookService is the second calendar tier: it performs the same logical
// operations as the remote store by POSTing JSON action envelopes to an
// externally configured endpoint, typically fronting a workflow-automation
// system. Non-2xx responses are failures.
type WebhookService struct {
	calendarURL string
	httpClient  *http.Client
}

// NewWebhookService creates a webhook gateway for the given calendar
// endpoint. An empty URL leaves the tier unconfigured.
func NewWebhookService(calendarURL string) *WebhookService {
	return &WebhookService{
		calendarURL: calendarURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured returns true if a calendar webhook endpoint is set.
func (s *WebhookService) IsConfigured() bool {
	return s != nil && s.calendarURL != ""
}

// wireEvent tolerates the loose field naming webhook responses use:
// start/startDate and end/endDate aliases, summary for title, absent ids.
type wireEvent struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Summary     string                 `json:"summary"`
	Start       *time.Time             `json:"start"`
	StartDate   *time.Time             `json:"startDate"`
	End         *time.Time             `json:"end"`
	EndDate     *time.Time             `json:"endDate"`
	Description string                 `json:"description"`
	Location    string                 `json:"location"`
	AllDay      bool                   `json:"allDay"`
	Color       string                 `json:"color"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// toCalendarEvent resolves the aliases only; it fills no placeholders, so
// partial echoes (update responses) do not grow fields the caller never set.
func (w wireEvent) toCalendarEvent() db.CalendarEvent {
	event := db.CalendarEvent{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Location:    w.Location,
		AllDay:      w.AllDay,
		Color:       w.Color,
		Metadata:    w.Metadata,
	}
	if event.Title == "" {
		event.Title = w.Summary
	}
	if w.Start != nil {
		event.Start = *w.Start
	} else if w.StartDate != nil {
		event.Start = *w.StartDate
	}
	if w.End != nil {
		event.End = *w.End
	} else if w.EndDate != nil {
		event.End = *w.EndDate
	}
	return event
}

// post sends an action envelope to the calendar endpoint and returns the
// response body.
func (s *WebhookService) post(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("calendar webhook not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.calendarURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook returned %s: %s", resp.Status, string(respBody))
	}
	return respBody, nil
}

// FetchEvents asks the webhook for events in [start, end].
func (s *WebhookService) FetchEvents(ctx context.Context, start, end time.Time) ([]db.CalendarEvent, error) {
	body, err := s.post(ctx, map[string]interface{}{
		"action":    "fetch",
		"startDate": start.UTC().Format(time.RFC3339),
		"endDate":   end.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Events []wireEvent `json:"events"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse webhook events: %w", err)
	}

	events := make([]db.CalendarEvent, 0, len(parsed.Events))
	for _, w := range parsed.Events {
		event := w.toCalendarEvent()
		// Listed events must be renderable on their own: mint an id and a
		// placeholder title where the endpoint supplied none.
		if event.ID == "" {
			event.ID = "event-" + uuid.New().String()
		}
		if event.Title == "" {
			event.Title = "Untitled Event"
		}
		events = append(events, event)
	}
	return events, nil
}

// CreateEvent creates an event through the webhook. The endpoint may echo an
// id and server-assigned fields; anything missing is filled from the input.
func (s *WebhookService) CreateEvent(ctx context.Context, input db.CreateCalendarEventRequest) (db.CalendarEvent, error) {
	body, err := s.post(ctx, map[string]interface{}{
		"action": "create",
		"event":  input,
	})
	if err != nil {
		return db.CalendarEvent{}, err
	}

	var echoed wireEvent
	if err := json.Unmarshal(body, &echoed); err != nil {
		// Some endpoints return an empty or non-JSON body on success.
		echoed = wireEvent{}
	}

	event := db.CalendarEvent{
		ID:          echoed.ID,
		Title:       input.Title,
		Start:       input.Start,
		End:         input.End,
		Description: input.Description,
		Location:    input.Location,
		AllDay:      input.AllDay,
		Color:       echoed.Color,
		Metadata:    input.Metadata,
	}
	if event.ID == "" {
		event.ID = "event-" + uuid.New().String()
	}
	if echoed.Metadata != nil {
		event.Metadata = echoed.Metadata
	}
	return event, nil
}

// UpdateEvent applies a partial update through the webhook and merges the
// echoed record over the requested changes.
func (s *WebhookService) UpdateEvent(ctx context.Context, eventID string, updates db.UpdateCalendarEventRequest) (db.CalendarEvent, error) {
	body, err := s.post(ctx, map[string]interface{}{
		"action":  "update",
		"eventId": eventID,
		"updates": updates,
	})
	if err != nil {
		return db.CalendarEvent{}, err
	}

	var echoed wireEvent
	if err := json.Unmarshal(body, &echoed); err != nil {
		echoed = wireEvent{}
	}

	event := echoed.toCalendarEvent()
	event.ID = eventID
	if updates.Title != nil {
		event.Title = *updates.Title
	}
	if updates.Start != nil {
		event.Start = *updates.Start
	}
	if updates.End != nil {
		event.End = *updates.End
	}
	if updates.Description != nil {
		event.Description = *updates.Description
	}
	if updates.Location != nil {
		event.Location = *updates.Location
	}
	if updates.AllDay != nil {
		event.AllDay = *updates.AllDay
	}
	if updates.Metadata != nil {
		event.Metadata = updates.Metadata
	}
	return event, nil
}

// DeleteEvent deletes an event through the webhook.
func (s *WebhookService) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := s.post(ctx, map[string]interface{}{
		"action":  "delete",
		"eventId": eventID,
	})
	return err
}

// Notify tells the webhook about a change that happened in another tier.
// Callers treat this as fire-and-forget; errors are returned only so they
// can be logged.
func (s *WebhookService) Notify(ctx context.Context, action string, event db.CalendarEvent) error {
	if !s.IsConfigured() {
		return nil
	}

	var payload interface{} = event
	if action == "delete" {
		payload = map[string]string{"id": event.ID}
	}
	_, err := s.post(ctx, map[string]interface{}{
		"action": action,
		"event":  payload,
	})
	return err
}
