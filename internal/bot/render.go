package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"followarr/internal/calendar"
	"followarr/internal/catalog/tvdb"
	"followarr/internal/messenger"
	"followarr/internal/store"
	"followarr/internal/textutil"
)

const (
	followColor   = 0x2ECC71
	listColor     = 0x3498DB
	calendarColor = 0x9B59B6

	maxFieldLength = 1024
)

func followEmbed(show *tvdb.Show) *messenger.Embed {
	embed := &messenger.Embed{
		Title: "Now Following: " + textutil.RestoreTitle(show.Name),
		Color: followColor,
	}
	if show.Overview != "" {
		embed.Fields = append(embed.Fields, messenger.Field{
			Name:  "Overview",
			Value: truncate(show.Overview, maxFieldLength),
		})
	}
	if show.Network != "" {
		embed.Fields = append(embed.Fields, messenger.Field{Name: "Network", Value: show.Network, Inline: true})
	}
	if show.Status != "" {
		embed.Fields = append(embed.Fields, messenger.Field{Name: "Status", Value: show.Status, Inline: true})
	}
	if show.FirstAired != "" {
		embed.Fields = append(embed.Fields, messenger.Field{Name: "First Aired", Value: show.FirstAired, Inline: true})
	}
	if show.PosterURL != "" {
		embed.Thumbnail = &messenger.Image{URL: show.PosterURL}
	}
	return embed
}

func listEmbed(follows []store.Follow) *messenger.Embed {
	var builder strings.Builder
	for _, follow := range follows {
		fmt.Fprintf(&builder, "- %s\n", textutil.RestoreTitle(follow.ShowName))
	}
	return &messenger.Embed{
		Title:       fmt.Sprintf("Your Shows (%d)", len(follows)),
		Description: truncate(builder.String(), maxFieldLength),
		Color:       listColor,
	}
}

func calendarEmbed(months []calendar.Month) *messenger.Embed {
	embed := &messenger.Embed{
		Title: "Upcoming Episodes",
		Color: calendarColor,
	}
	for _, month := range months {
		var builder strings.Builder
		for _, entry := range month.Entries {
			fmt.Fprintf(&builder, "%s - %s %s",
				entry.AirDate.Format("Jan 02"),
				textutil.RestoreTitle(entry.ShowName),
				entry.Code)
			if entry.Title != "" {
				fmt.Fprintf(&builder, " - %s", entry.Title)
			}
			builder.WriteByte('\n')
		}
		embed.Fields = append(embed.Fields, messenger.Field{
			Name:  fmt.Sprintf("%s %d", month.Month.String(), month.Year),
			Value: truncate(builder.String(), maxFieldLength),
		})
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
