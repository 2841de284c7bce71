package ics

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	"hostsweep/internal/models"

	"github.com/emersion/go-ical"
)

// guestNamePattern matches the Airbnb summary convention
// "Guest Name (CONFIRMATION_CODE)".
var guestNamePattern = regexp.MustCompile(`^([^(]+)\s*\(`)

// Parse converts raw ICS text into bookings sorted by check-in.
//
// Events are skipped, not failed on, when they describe host blocks
// (summary contains "blocked" or "not available"), carry STATUS:CANCELLED,
// or are missing either timestamp. Only a malformed document as a whole
// yields a ParseError.
func Parse(data []byte) ([]models.Booking, error) {
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "BEGIN:VCALENDAR") {
		return nil, &ParseError{Err: errors.New("expected BEGIN:VCALENDAR")}
	}

	decoder := ical.NewDecoder(bytes.NewReader(data))

	var bookings []models.Booking
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			if booking, ok := eventBooking(comp); ok {
				bookings = append(bookings, booking)
			}
		}
	}

	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CheckIn.Before(bookings[j].CheckIn)
	})

	return bookings, nil
}

func eventBooking(comp *ical.Component) (models.Booking, bool) {
	var booking models.Booking

	if statusProp := comp.Props.Get(ical.PropStatus); statusProp != nil {
		if strings.EqualFold(statusProp.Value, "CANCELLED") {
			return booking, false
		}
	}

	summary := "Booking"
	if summaryProp := comp.Props.Get(ical.PropSummary); summaryProp != nil {
		summary = summaryProp.Value
	}
	if isBlocked(summary) {
		return booking, false
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	endProp := comp.Props.Get(ical.PropDateTimeEnd)
	if startProp == nil || endProp == nil {
		return booking, false
	}

	checkIn, err := parseDateProp(startProp)
	if err != nil {
		return booking, false
	}
	checkOut, err := parseDateProp(endProp)
	if err != nil {
		return booking, false
	}

	booking = models.Booking{
		Summary:  summary,
		CheckIn:  checkIn,
		CheckOut: checkOut,
	}

	if uidProp := comp.Props.Get(ical.PropUID); uidProp != nil {
		booking.UID = uidProp.Value
	}
	if booking.UID == "" {
		// Airbnb always sets UID; a missing one gets a deterministic stand-in
		// so the booking still reconciles stably across passes.
		booking.UID = checkIn.Format("20060102") + "-" + checkOut.Format("20060102") + "-" + summary
	}

	if descProp := comp.Props.Get(ical.PropDescription); descProp != nil {
		booking.Description = descProp.Value
	}

	if m := guestNamePattern.FindStringSubmatch(summary); m != nil {
		booking.GuestName = strings.TrimSpace(m[1])
	}

	return booking, true
}

// isBlocked reports whether the summary describes a host block rather than
// a guest booking.
func isBlocked(summary string) bool {
	lower := strings.ToLower(summary)
	return strings.Contains(lower, "blocked") || strings.Contains(lower, "not available")
}

// parseDateProp handles both DATE and DATE-TIME property values. Airbnb
// feeds use all-day DATE values; stray DATE-TIME values are accepted too.
func parseDateProp(prop *ical.Prop) (time.Time, error) {
	if t, err := prop.DateTime(time.UTC); err == nil {
		return t, nil
	}

	value := prop.Value
	formats := []string{
		"20060102",
		"20060102T150405",
		"20060102T150405Z",
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, value, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &ParseError{Err: errors.New("unable to parse date value: " + value)}
}
