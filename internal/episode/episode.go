// Package episode defines the normalized new-episode event that flows from
// webhook ingestion to notification dispatch.
package episode

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a single new-episode announcement from the media server,
// normalized from the upstream webhook payload.
type Event struct {
	// ID identifies this delivery for log correlation. Duplicate webhook
	// posts get distinct IDs; the pipeline performs no deduplication.
	ID string

	// ShowName is the series title as reported by the media server.
	ShowName string

	// TVDBID is the catalog identifier parsed from the payload GUID,
	// or 0 when the payload carried none.
	TVDBID int64

	Season  int
	Number  int
	Title   string
	Summary string

	// AirDate is the original air date in YYYY-MM-DD form, possibly empty.
	AirDate string

	// Thumb is a poster or thumbnail URL, possibly empty.
	Thumb string

	ReceivedAt time.Time
}

// NewEvent constructs an Event with a fresh delivery ID and receive timestamp.
func NewEvent(showName string) Event {
	return Event{
		ID:         uuid.NewString(),
		ShowName:   strings.TrimSpace(showName),
		ReceivedAt: time.Now().UTC(),
	}
}

// Code renders the standard SxxExx episode code.
func (e Event) Code() string {
	return fmt.Sprintf("S%02dE%02d", e.Season, e.Number)
}

// Handler consumes a normalized episode event. Implementations must tolerate
// duplicate events: the ingress acknowledges before processing and never
// deduplicates.
type Handler func(ctx context.Context, event Event)
