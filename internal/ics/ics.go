// Package ics renders sessions as iCalendar (RFC 5545) documents for invite
// payloads and calendar downloads.
package ics

import (
	"encoding/hex"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// ProductID identifies this producer in every calendar.
const ProductID = "-//Office Hours//Scheduler//EN"

// UIDDomain is appended to instance ids to form UIDs.
const UIDDomain = "officehours"

// Method is the iTIP method of a calendar.
type Method string

const (
	MethodPublish Method = "PUBLISH"
	MethodRequest Method = "REQUEST"
	MethodCancel  Method = "CANCEL"
)

// Event is one VEVENT.
type Event struct {
	ID          uuid.UUID
	Sequence    int
	Start       time.Time
	End         time.Time
	Summary     string
	Description string
	URL         string
	Cancelled   bool
	// RRule is an RRULE value without the property name; empty for single events.
	RRule string
}

// UID returns the stable calendar UID of an instance id.
func UID(id uuid.UUID) string {
	return hex.EncodeToString(id[:]) + "@" + UIDDomain
}

// Calendar serialises events into a VCALENDAR using method and stamp.
func Calendar(method Method, stamp time.Time, events ...Event) string {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.Method(method))

	for _, ev := range events {
		vevent := cal.AddEvent(UID(ev.ID))
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetProperty(ical.ComponentPropertySequence, strconv.Itoa(ev.Sequence))
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.URL != "" {
			vevent.SetURL(ev.URL)
		}
		status := "CONFIRMED"
		if ev.Cancelled || method == MethodCancel {
			status = "CANCELLED"
		}
		vevent.SetProperty(ical.ComponentPropertyStatus, status)
		if ev.RRule != "" {
			vevent.AddProperty(ical.ComponentPropertyRrule, ev.RRule)
		}
	}

	return cal.Serialize()
}
