package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/klokku/reminder/pkg/calendar"
	log "github.com/sirupsen/logrus"
)

const (
	// Gold.
	EmbedColor = 0xffd700

	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04 -07:00"
	noEventsLine    = "- No events"
)

// Formatter renders calendar events as webhook payloads. It is pure apart
// from the warning logged when a day has more than one event.
type Formatter struct {
	imageUrl string
}

func NewFormatter(imageUrl string) *Formatter {
	return &Formatter{imageUrl: imageUrl}
}

// Daily announces the earliest event of the day. Only events[0] is used;
// events must be ordered by start time.
func (f *Formatter) Daily(events []calendar.Event) Payload {
	if len(events) == 0 {
		return Payload{Embeds: []Embed{{
			Title:       "Reminder",
			Description: "No events today",
			Color:       EmbedColor,
		}}}
	}
	if len(events) > 1 {
		log.Warnf("Multiple events found (%d). Only the first one is posted.", len(events))
	}

	event := events[0]
	embed := Embed{
		Title: "Reminder: " + event.Summary,
		Description: fmt.Sprintf("Today is an activity day!\nStarts <t:%d:t> (%s)",
			event.Start.Unix(), event.Start.Format(timeOfDayLayout)),
		Timestamp: event.Start.Format(time.RFC3339),
		Color:     EmbedColor,
	}
	if f.imageUrl != "" {
		embed.Image = &Image{URL: f.imageUrl}
	}
	return Payload{Embeds: []Embed{embed}}
}

// Weekly lists every event of the window as one bullet, in the order given.
// An empty week still yields a digest with a placeholder line.
func (f *Formatter) Weekly(window calendar.TimeWindow, events []calendar.Event) Payload {
	lines := make([]string, 0, len(events))
	for _, event := range events {
		lines = append(lines, fmt.Sprintf("- <t:%d:F> %s", event.Start.Unix(), event.Summary))
	}
	if len(lines) == 0 {
		lines = append(lines, noEventsLine)
	}

	return Payload{Embeds: []Embed{{
		Title: fmt.Sprintf("Schedule: %s - %s",
			window.Start.Format(dateLayout), window.End.Format(dateLayout)),
		Description: "This week's schedule:\n" + strings.Join(lines, "\n"),
		Color:       EmbedColor,
	}}}
}
