package dispatch

import (
	"context"
	"fmt"
	"unicode/utf8"

	"followarr/internal/episode"
	"followarr/internal/logging"
	"followarr/internal/messenger"
	"followarr/internal/textutil"
)

// embedColor is the accent color of notification embeds (green).
const embedColor = 0x2ECC71

// maxFieldLength is the chat platform's limit on embed field values.
const maxFieldLength = 1024

// render builds the notification embed, enriching it with poster and show
// status from the catalog when available. Catalog failures degrade to the
// event's own fields rather than blocking delivery.
func (d *Dispatcher) render(ctx context.Context, event episode.Event, showID int64, showName string) messenger.Embed {
	thumb := event.Thumb
	status := ""
	if d.catalog != nil {
		if show, err := d.catalog.GetSeries(ctx, showID); err != nil {
			d.logger.Warn("catalog enrichment failed",
				logging.Int64(logging.FieldShowID, showID),
				logging.Error(err))
		} else {
			if show.PosterURL != "" {
				thumb = show.PosterURL
			}
			status = show.Status
		}
	}

	embed := messenger.Embed{
		Title:       "New Episode Added: " + textutil.RestoreTitle(showName),
		Description: "A new episode has been added to your media server.",
		Color:       embedColor,
		Footer:      &messenger.Footer{Text: "Followarr"},
	}
	embed.Fields = append(embed.Fields, messenger.Field{
		Name:  "Episode",
		Value: fmt.Sprintf("%s - %s", event.Code(), event.Title),
	})
	if event.Summary != "" {
		embed.Fields = append(embed.Fields, messenger.Field{
			Name:  "Summary",
			Value: truncate(event.Summary, maxFieldLength),
		})
	}
	if event.AirDate != "" {
		embed.Fields = append(embed.Fields, messenger.Field{
			Name:   "Air Date",
			Value:  event.AirDate,
			Inline: true,
		})
	}
	if status != "" {
		embed.Fields = append(embed.Fields, messenger.Field{
			Name:   "Show Status",
			Value:  status,
			Inline: true,
		})
	}
	if thumb != "" {
		embed.Thumbnail = &messenger.Image{URL: thumb}
	}
	return embed
}

// truncate shortens text to at most limit bytes without splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
