// Package calendar reads the Hyperplanning iCalendar feed and shapes its
// events into course listings and per-subject hour totals.
package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// Event is one parsed VEVENT with its times in the feed's display zone.
type Event struct {
	UID         string
	Summary     string
	Location    string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// FeedOpts configures a Feed.
type FeedOpts struct {
	URL        string
	Location   *time.Location // display zone; nil means UTC
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Feed fetches and parses a remote calendar.
type Feed struct {
	url       string
	loc       *time.Location
	userAgent string
	timeout   time.Duration
	http      *http.Client
}

// NewFeed creates a Feed. The URL is required.
func NewFeed(opts FeedOpts) (*Feed, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("calendar: feed url is required")
	}
	f := &Feed{
		url:       opts.URL,
		loc:       opts.Location,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		http:      opts.HTTPClient,
	}
	if f.loc == nil {
		f.loc = time.UTC
	}
	if f.timeout <= 0 {
		f.timeout = 12 * time.Second
	}
	if f.http == nil {
		f.http = http.DefaultClient
	}
	return f, nil
}

// Location returns the display zone.
func (f *Feed) Location() *time.Location { return f.loc }

// Events downloads the feed and returns its events.
func (f *Feed) Events(ctx context.Context) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("calendar: build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar: fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("calendar: fetch feed: status %d", resp.StatusCode)
	}
	return Parse(resp.Body, f.loc)
}

// Parse reads an iCalendar document. Timed events are converted to loc;
// floating times are read as UTC. All-day events start at midnight in loc.
func Parse(r io.Reader, loc *time.Location) ([]Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse: %w", err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		start, allDay, err := propTime(ve.GetProperty(ics.ComponentPropertyDtStart), loc)
		if err != nil {
			return nil, fmt.Errorf("calendar: event %q: dtstart: %w", ve.Id(), err)
		}
		end := start
		if p := ve.GetProperty(ics.ComponentPropertyDtEnd); p != nil {
			if end, _, err = propTime(p, loc); err != nil {
				return nil, fmt.Errorf("calendar: event %q: dtend: %w", ve.Id(), err)
			}
		}
		events = append(events, Event{
			UID:         ve.Id(),
			Summary:     propText(ve.GetProperty(ics.ComponentPropertySummary)),
			Location:    propText(ve.GetProperty(ics.ComponentPropertyLocation)),
			Description: propText(ve.GetProperty(ics.ComponentPropertyDescription)),
			Start:       start.In(loc),
			End:         end.In(loc),
			AllDay:      allDay,
		})
	}
	return events, nil
}

func propText(p *ics.IANAProperty) string {
	if p == nil {
		return ""
	}
	return ics.FromText(p.Value)
}

const (
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
	layoutDate     = "20060102"
)

// propTime decodes a DATE or DATE-TIME property, honouring its TZID.
// Floating times are UTC; the library getters would read them in time.Local.
func propTime(p *ics.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	if p == nil {
		return time.Time{}, false, fmt.Errorf("missing")
	}
	v := strings.TrimSpace(p.Value)
	switch {
	case len(v) == len(layoutDate):
		t, err := time.ParseInLocation(layoutDate, v, loc)
		return t, true, err
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse(layoutUTC, v)
		return t, false, err
	}

	zone := time.UTC
	if tzid := p.ICalParameters[string(ics.ParameterTzid)]; len(tzid) > 0 {
		if l, err := time.LoadLocation(tzid[0]); err == nil {
			zone = l
		}
	}
	t, err := time.ParseInLocation(layoutFloating, v, zone)
	return t, false, err
}
