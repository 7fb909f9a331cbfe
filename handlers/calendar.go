package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/gin-gonic/gin"
	"github.com/ringboard/ringboard/db"
	"github.com/ringboard/ringboard/services"
)

type CalendarHandler struct {
	calendar *services.CalendarService
}

func NewCalendarHandler(calendar *services.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// parseRange reads the start/end query parameters. Absent bounds default to
// a window around now wide enough for the usual month view.
func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.AddDate(0, -1, 0)
	end := now.AddDate(0, 2, 0)

	if raw := c.Query("start"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, errors.New("start must be an RFC3339 timestamp")
		}
		start = parsed
	}
	if raw := c.Query("end"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, errors.New("end must be an RFC3339 timestamp")
		}
		end = parsed
	}
	return start, end, nil
}

// ListEvents handles GET /api/calendar/events. Fetch degrades through the
// tiers and never fails; the worst case is an empty list.
func (h *CalendarHandler) ListEvents(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(c, h.calendar.FetchEvents(c.Request.Context(), start, end))
}

// CreateEvent handles POST /api/calendar/events. A remote-store failure is
// surfaced verbatim so the UI can show it.
func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	var input db.CreateCalendarEventRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.calendar.CreateEvent(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRange) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": event})
}

// UpdateEvent handles PUT /api/calendar/events/:id.
func (h *CalendarHandler) UpdateEvent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondError(c, http.StatusBadRequest, "event id is required")
		return
	}

	var updates db.UpdateCalendarEventRequest
	if err := c.ShouldBindJSON(&updates); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.calendar.UpdateEvent(c.Request.Context(), id, updates)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRange) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}
	respondOK(c, event)
}

// DeleteEvent handles DELETE /api/calendar/events/:id.
func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondError(c, http.StatusBadRequest, "event id is required")
		return
	}

	if err := h.calendar.DeleteEvent(c.Request.Context(), id); err != nil {
		respondError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ExportICS handles GET /api/calendar/export.ics, serving the requested
// range as an iCalendar feed.
func (h *CalendarHandler) ExportICS(c *gin.Context) {
	start, end, err := parseRange(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	events := h.calendar.FetchEvents(c.Request.Context(), start, end)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//ringboard//calendar//EN")

	now := time.Now().UTC()
	for _, event := range events {
		item := ical.NewEvent()
		item.Props.SetText(ical.PropUID, event.ID)
		item.Props.SetText(ical.PropSummary, event.Title)
		item.Props.SetDateTime(ical.PropDateTimeStamp, now)
		item.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
		item.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
		if event.Description != "" {
			item.Props.SetText(ical.PropDescription, event.Description)
		}
		if event.Location != "" {
			item.Props.SetText(ical.PropLocation, event.Location)
		}
		cal.Children = append(cal.Children, item.Component)
	}

	c.Header("Content-Type", "text/calendar; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="ringboard.ics"`)
	if err := ical.NewEncoder(c.Writer).Encode(cal); err != nil {
		// Headers are already out; nothing left to do but log via gin.
		_ = c.Error(err)
	}
}
