package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SurajRai1/Curiosity-Manager-sub001/internal/models"
	ical "github.com/arran4/golang-ical"
)

const (
	icalProductID = "-//Curiosity Manager//Calendar//EN"

	maxICSBytes = 5 << 20

	propertyEventType      = ical.ComponentProperty("X-CURIOSITY-TYPE")
	propertyEnergyRequired = ical.ComponentProperty("X-CURIOSITY-ENERGY")
)

// ExportICS renders the caller's events matching filter as an iCalendar
// document. Timed events are placed in the service location; events without a
// time become all-day entries.
func (service *CalendarService) ExportICS(ctx context.Context, filter CalendarFilter) (string, error) {
	events, err := service.List(ctx, filter)
	if err != nil {
		return "", err
	}

	calendar := ical.NewCalendar()
	calendar.SetMethod(ical.MethodPublish)
	calendar.SetProductId(icalProductID)
	calendar.SetXWRCalName("Curiosity Manager")

	for _, event := range events {
		if err := service.addICalEvent(calendar, event); err != nil {
			service.logger.Warn().Err(err).Str("id", event.ID).Msg("skipping calendar event in export")
		}
	}
	return calendar.Serialize(), nil
}

func (service *CalendarService) addICalEvent(calendar *ical.Calendar, event models.CalendarEvent) error {
	day, err := time.ParseInLocation("2006-01-02", event.Date, service.location)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", event.Date, err)
	}

	vevent := calendar.AddEvent(event.ID + "@curiosity-manager")
	vevent.SetDtStampTime(event.UpdatedAt)
	vevent.SetCreatedTime(event.CreatedAt)
	vevent.SetModifiedAt(event.UpdatedAt)
	vevent.SetSummary(event.Title)
	if event.Description != nil && *event.Description != "" {
		vevent.SetDescription(*event.Description)
	}

	if event.Time == nil {
		vevent.SetAllDayStartAt(day)
		vevent.SetAllDayEndAt(day.AddDate(0, 0, 1))
	} else {
		clock, err := time.Parse(TimeOfDayLayout, *event.Time)
		if err != nil {
			return fmt.Errorf("parsing time %q: %w", *event.Time, err)
		}
		start := day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
		vevent.SetStartAt(start)
		if event.Duration != nil {
			vevent.SetEndAt(start.Add(time.Duration(*event.Duration) * time.Minute))
		}
	}

	if event.IsCompleted {
		vevent.SetProperty(ical.ComponentPropertyStatus, "COMPLETED")
	} else {
		vevent.SetProperty(ical.ComponentPropertyStatus, "CONFIRMED")
	}
	if event.IsUrgent {
		vevent.SetProperty(ical.ComponentPropertyPriority, "1")
	}
	vevent.SetProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(event.Type)))
	vevent.SetProperty(propertyEventType, string(event.Type))
	vevent.SetProperty(propertyEnergyRequired, string(event.EnergyRequired))
	return nil
}

// ImportICS creates one calendar event per VEVENT in the document. Events
// that cannot be converted are skipped; the created events are returned.
func (service *CalendarService) ImportICS(ctx context.Context, reader io.Reader) ([]models.CalendarEvent, error) {
	session, err := service.session(ctx, "importing calendar")
	if err != nil {
		return nil, err
	}

	calendar, err := ical.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("importing calendar: %w: parsing ical: %v", ErrInvalidInput, err)
	}

	var created []models.CalendarEvent
	for _, vevent := range calendar.Events() {
		input, err := service.convertICalEvent(vevent)
		if err != nil {
			service.logger.Debug().Err(err).Msg("skipping ical event")
			continue
		}
		if err := validateInput(input); err != nil {
			service.logger.Debug().Err(err).Str("title", input.Title).Msg("skipping invalid ical event")
			continue
		}
		event, err := service.insert(ctx, session, input)
		if err != nil {
			return created, fmt.Errorf("importing calendar: %w", err)
		}
		created = append(created, event)
	}

	service.logger.Info().Str("user_id", session.UserID).Int("count", len(created)).Msg("imported calendar events")
	return created, nil
}

// ImportICSFromURL downloads an iCalendar feed and imports it like ImportICS.
func (service *CalendarService) ImportICSFromURL(ctx context.Context, client *http.Client, url string) ([]models.CalendarEvent, error) {
	if _, err := service.session(ctx, "importing calendar"); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return nil, fmt.Errorf("importing calendar: %w: url must be http or https", ErrInvalidInput)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("importing calendar: %w: %v", ErrInvalidInput, err)
	}
	response, err := client.Do(request)
	if errors.Is(err, errBlockedAddress) || errors.Is(err, ErrInvalidInput) {
		return nil, fmt.Errorf("importing calendar: %w: feed address not allowed", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		service.logger.Debug().Int("status", response.StatusCode).Msg("calendar feed rejected")
		return nil, fmt.Errorf("importing calendar: %w: feed could not be downloaded", ErrInvalidInput)
	}
	return service.ImportICS(ctx, io.LimitReader(response.Body, maxICSBytes))
}

func (service *CalendarService) convertICalEvent(vevent *ical.VEvent) (NewCalendarEvent, error) {
	input := NewCalendarEvent{
		Title:          "(No title)",
		Type:           models.EventTypeAppointment,
		EnergyRequired: models.LevelMedium,
	}
	if prop := vevent.GetProperty(ical.ComponentPropertySummary); prop != nil && prop.Value != "" {
		input.Title = prop.Value
	}
	if prop := vevent.GetProperty(ical.ComponentPropertyDescription); prop != nil && prop.Value != "" {
		description := prop.Value
		input.Description = &description
	}
	if prop := vevent.GetProperty(propertyEventType); prop != nil {
		input.Type = models.EventType(prop.Value)
	}
	if prop := vevent.GetProperty(propertyEnergyRequired); prop != nil {
		input.EnergyRequired = models.Level(prop.Value)
	}
	if prop := vevent.GetProperty(ical.ComponentPropertyStatus); prop != nil {
		input.IsCompleted = strings.EqualFold(prop.Value, "COMPLETED")
	}
	if prop := vevent.GetProperty(ical.ComponentPropertyPriority); prop != nil {
		if priority, err := strconv.Atoi(strings.TrimSpace(prop.Value)); err == nil {
			input.IsUrgent = priority >= 1 && priority <= 4
		}
	}

	startProp := vevent.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return NewCalendarEvent{}, fmt.Errorf("missing DTSTART for event %q", input.Title)
	}

	if isAllDay(startProp) {
		start, err := vevent.GetAllDayStartAt()
		if err != nil {
			return NewCalendarEvent{}, fmt.Errorf("parsing DTSTART for event %q: %w", input.Title, err)
		}
		input.Date = start.Format("2006-01-02")
		return input, nil
	}

	start, err := vevent.GetStartAt()
	if err != nil {
		return NewCalendarEvent{}, fmt.Errorf("parsing DTSTART for event %q: %w", input.Title, err)
	}
	local := start.In(service.location)
	input.Date = local.Format("2006-01-02")
	clock := local.Format(TimeOfDayLayout)
	input.Time = &clock

	if end, err := vevent.GetEndAt(); err == nil && end.After(start) {
		minutes := int(end.Sub(start) / time.Minute)
		input.Duration = &minutes
	}
	return input, nil
}

func isAllDay(prop *ical.IANAProperty) bool {
	for _, values := range prop.ICalParameters {
		for _, value := range values {
			if strings.EqualFold(value, "DATE") {
				return true
			}
		}
	}
	// Date-only values are exactly YYYYMMDD.
	return len(strings.TrimSpace(prop.Value)) == 8
}
