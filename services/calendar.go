package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ringboard/ringboard/db"
)

// ErrInvalidRange rejects event ranges whose end precedes their start.
var ErrInvalidRange = errors.New("event end must not precede start")

// CalendarService orchestrates the three calendar tiers in fixed priority
// order: remote store, then webhook gateway, then local cache. Callers
// always get a result or an error, never silently nothing.
type CalendarService struct {
	Remote  *RemoteCalendarStore
	Webhook *WebhookService
	Cache   *EventCache
}

func NewCalendarService(remote *RemoteCalendarStore, webhook *WebhookService, cache *EventCache) *CalendarService {
	return &CalendarService{
		Remote:  remote,
		Webhook: webhook,
		Cache:   cache,
	}
}

// tierStatus tags the outcome of one tier attempt.
type tierStatus int

const (
	tierOK tierStatus = iota
	tierSkipped
	tierFailed
)

type tierResult[T any] struct {
	status tierStatus
	value  T
	err    error
}

func tierOk[T any](v T) tierResult[T] { return tierResult[T]{status: tierOK, value: v} }

func tierSkip[T any]() tierResult[T] { return tierResult[T]{status: tierSkipped} }

func tierFail[T any](err error) tierResult[T] {
	return tierResult[T]{status: tierFailed, err: err}
}

// tierAttempt is one rung of the fallback chain. A failure on a terminal
// tier surfaces to the caller; otherwise the chain keeps falling through.
type tierAttempt[T any] struct {
	name     string
	terminal bool
	run      func(context.Context) tierResult[T]
}

// runTiers walks the attempts in priority order. Skipped tiers (not
// configured) are passed over without an attempt.
func runTiers[T any](ctx context.Context, op string, attempts ...tierAttempt[T]) (T, error) {
	var zero T
	for _, attempt := range attempts {
		result := attempt.run(ctx)
		switch result.status {
		case tierSkipped:
			continue
		case tierOK:
			return result.value, nil
		case tierFailed:
			log.Printf("Calendar: %s via %s failed: %v", op, attempt.name, result.err)
			if attempt.terminal {
				return zero, result.err
			}
		}
	}
	return zero, fmt.Errorf("%s: no calendar tier available", op)
}

// FetchEvents returns the events intersecting [start, end]. Remote data is
// returned as-is without merging; when only the webhook answers, its events
// are mirrored back into the remote store in the background. Fetch never
// fails: with every tier down the local cache still yields a (possibly
// empty) slice.
func (s *CalendarService) FetchEvents(ctx context.Context, start, end time.Time) []db.CalendarEvent {
	events, err := runTiers(ctx, "fetch",
		tierAttempt[[]db.CalendarEvent]{
			name: "remote store",
			run: func(ctx context.Context) tierResult[[]db.CalendarEvent] {
				if !s.Remote.IsConfigured() {
					return tierSkip[[]db.CalendarEvent]()
				}
				events, err := s.Remote.List(ctx, start, end)
				if err != nil {
					return tierFail[[]db.CalendarEvent](err)
				}
				return tierOk(events)
			},
		},
		tierAttempt[[]db.CalendarEvent]{
			name: "webhook",
			run: func(ctx context.Context) tierResult[[]db.CalendarEvent] {
				if !s.Webhook.IsConfigured() {
					return tierSkip[[]db.CalendarEvent]()
				}
				events, err := s.Webhook.FetchEvents(ctx, start, end)
				if err != nil {
					return tierFail[[]db.CalendarEvent](err)
				}
				if len(events) > 0 {
					s.mirrorToRemoteAsync(events)
				}
				return tierOk(events)
			},
		},
		tierAttempt[[]db.CalendarEvent]{
			name: "local cache",
			run: func(ctx context.Context) tierResult[[]db.CalendarEvent] {
				return tierOk(s.Cache.List(start, end))
			},
		},
	)
	if err != nil {
		// Unreachable while the cache tier exists, but fetch must degrade
		// rather than propagate.
		log.Printf("Calendar: fetch degraded to empty: %v", err)
		return []db.CalendarEvent{}
	}
	return events
}

// CreateEvent creates an event through the first available tier. A failure
// of the remote store is terminal: the store's error surfaces to the caller
// and no other tier is attempted. Remote absence (not configured) falls
// through to the webhook, then to a cache-only insert.
func (s *CalendarService) CreateEvent(ctx context.Context, input db.CreateCalendarEventRequest) (db.CalendarEvent, error) {
	if input.End.Before(input.Start) {
		return db.CalendarEvent{}, ErrInvalidRange
	}

	return runTiers(ctx, "create",
		tierAttempt[db.CalendarEvent]{
			name:     "remote store",
			terminal: true,
			run: func(ctx context.Context) tierResult[db.CalendarEvent] {
				if !s.Remote.IsConfigured() {
					return tierSkip[db.CalendarEvent]()
				}
				event, err := s.Remote.Insert(ctx, input)
				if err != nil {
					return tierFail[db.CalendarEvent](err)
				}
				s.notifyWebhookAsync("create", event)
				s.cacheAsync(event)
				return tierOk(event)
			},
		},
		tierAttempt[db.CalendarEvent]{
			name: "webhook",
			run: func(ctx context.Context) tierResult[db.CalendarEvent] {
				if !s.Webhook.IsConfigured() {
					return tierSkip[db.CalendarEvent]()
				}
				event, err := s.Webhook.CreateEvent(ctx, input)
				if err != nil {
					return tierFail[db.CalendarEvent](err)
				}
				s.mirrorToRemoteAsync([]db.CalendarEvent{event})
				s.cacheAsync(event)
				return tierOk(event)
			},
		},
		tierAttempt[db.CalendarEvent]{
			name:     "local cache",
			terminal: true,
			run: func(ctx context.Context) tierResult[db.CalendarEvent] {
				event := db.CalendarEvent{
					ID:          "event-" + uuid.New().String(),
					Title:       input.Title,
					Start:       input.Start,
					End:         input.End,
					Description: input.Description,
					Location:    input.Location,
					AllDay:      input.AllDay,
					Metadata:    input.Metadata,
				}
				if err := s.Cache.Upsert(event); err != nil {
					log.Printf("Calendar: %v", err)
				}
				return tierOk(event)
			},
		},
	)
}

// UpdateEvent applies a partial update, with the same tier order and the
// same terminal-on-remote-failure rule as create. An empty update returns
// the stored record unchanged.
func (s *CalendarService) UpdateEvent(ctx context.Context, eventID string, updates db.UpdateCalendarEventRequest) (db.CalendarEvent, error) {
	if err := s.checkUpdateRange(ctx, eventID, updates); err != nil {
		return db.CalendarEvent{}, err
	}

	return runTiers(ctx, "update",
		tierAttempt[db.CalendarEvent]{
			name:     "remote store",
			terminal: true,
			run: func(ctx context.Context) tierResult[db.CalendarEvent] {
				if !s.Remote.IsConfigured() {
					return tierSkip[db.CalendarEvent]()
				}
				event, err := s.Remote.Update(ctx, eventID, updates)
				if err != nil {
					return tierFail[db.CalendarEvent](err)
				}
				s.notifyWebhookAsync("update", event)
				s.cacheAsync(event)
				return tierOk(event)
			},
		},
		tierAttempt[db.CalendarEvent]{
			name: "webhook",
			run: func(ctx context.Context) tierResult[db.CalendarEvent] {
				if !s.Webhook.IsConfigured() {
					return tierSkip[db.CalendarEvent]()
				}
				event, err := s.Webhook.UpdateEvent(ctx, eventID, updates)
				if err != nil {
					return tierFail[db.CalendarEvent](err)
				}
				s.mirrorToRemoteAsync([]db.CalendarEvent{event})
				s.cacheAsync(event)
				return tierOk(event)
			},
		},
		tierAttempt[db.CalendarEvent]{
			name:     "local cache",
			terminal: true,
			run: func(ctx context.Context) tierResult[db.CalendarEvent] {
				existing, err := s.Cache.Get(eventID)
				if err != nil {
					return tierFail[db.CalendarEvent](fmt.Errorf("event %s not found", eventID))
				}
				updated := applyEventUpdates(existing, updates)
				if err := s.Cache.Upsert(updated); err != nil {
					log.Printf("Calendar: %v", err)
				}
				return tierOk(updated)
			},
		},
	)
}

// checkUpdateRange rejects partial updates that would leave the stored
// record with end before start. When only one bound is supplied, the other
// comes from the current record so a single-bound update cannot invert the
// range either.
func (s *CalendarService) checkUpdateRange(ctx context.Context, eventID string, updates db.UpdateCalendarEventRequest) error {
	if updates.Start == nil && updates.End == nil {
		return nil
	}
	if updates.Start != nil && updates.End != nil {
		if updates.End.Before(*updates.Start) {
			return ErrInvalidRange
		}
		return nil
	}

	existing, ok := s.currentEvent(ctx, eventID)
	if !ok {
		// Nothing to merge against; the tiers surface not-found themselves.
		return nil
	}
	merged := applyEventUpdates(existing, updates)
	if merged.End.Before(merged.Start) {
		return ErrInvalidRange
	}
	return nil
}

// currentEvent reads the stored record from the first tier that has it.
func (s *CalendarService) currentEvent(ctx context.Context, eventID string) (db.CalendarEvent, bool) {
	if s.Remote.IsConfigured() {
		if event, err := s.Remote.Get(ctx, eventID); err == nil {
			return event, true
		}
	}
	if event, err := s.Cache.Get(eventID); err == nil {
		return event, true
	}
	return db.CalendarEvent{}, false
}

// DeleteEvent removes an event through the first tier that succeeds, then
// always clears the local cache entry as a final idempotent step.
func (s *CalendarService) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := runTiers(ctx, "delete",
		tierAttempt[struct{}]{
			name: "remote store",
			run: func(ctx context.Context) tierResult[struct{}] {
				if !s.Remote.IsConfigured() {
					return tierSkip[struct{}]()
				}
				if err := s.Remote.Delete(ctx, eventID); err != nil {
					return tierFail[struct{}](err)
				}
				s.notifyWebhookAsync("delete", db.CalendarEvent{ID: eventID})
				return tierOk(struct{}{})
			},
		},
		tierAttempt[struct{}]{
			name: "webhook",
			run: func(ctx context.Context) tierResult[struct{}] {
				if !s.Webhook.IsConfigured() {
					return tierSkip[struct{}]()
				}
				if err := s.Webhook.DeleteEvent(ctx, eventID); err != nil {
					return tierFail[struct{}](err)
				}
				return tierOk(struct{}{})
			},
		},
		tierAttempt[struct{}]{
			name: "local cache",
			run: func(ctx context.Context) tierResult[struct{}] {
				return tierOk(struct{}{})
			},
		},
	)

	// Idempotent local cleanup regardless of which tier reported success.
	if cacheErr := s.Cache.Delete(eventID); cacheErr != nil {
		log.Printf("Calendar: %v", cacheErr)
	}
	return err
}

// mirrorToRemoteAsync pushes webhook-sourced events into the remote store.
// Fire-and-forget: per-row failures are logged and a partial mirror stands.
func (s *CalendarService) mirrorToRemoteAsync(events []db.CalendarEvent) {
	if !s.Remote.IsConfigured() {
		return
	}
	go func() {
		ctx := context.Background()
		for _, event := range events {
			if err := s.Remote.Upsert(ctx, event); err != nil {
				log.Printf("Calendar: mirror to remote store failed for %s: %v", event.ID, err)
			}
		}
	}()
}

// notifyWebhookAsync tells the webhook about a change made in the remote
// store. Errors are logged, never surfaced.
func (s *CalendarService) notifyWebhookAsync(action string, event db.CalendarEvent) {
	if !s.Webhook.IsConfigured() {
		return
	}
	go func() {
		if err := s.Webhook.Notify(context.Background(), action, event); err != nil {
			log.Printf("Calendar: webhook notify (%s) failed for %s: %v", action, event.ID, err)
		}
	}()
}

// cacheAsync mirrors a successful write into the local cache.
func (s *CalendarService) cacheAsync(event db.CalendarEvent) {
	go func() {
		if err := s.Cache.Upsert(event); err != nil {
			log.Printf("Calendar: %v", err)
		}
	}()
}

func applyEventUpdates(event db.CalendarEvent, updates db.UpdateCalendarEventRequest) db.CalendarEvent {
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
	return event
}
