// Package calendar builds the upcoming-episode schedule for a user's
// followed shows.
package calendar

import (
	"context"
	"sort"
	"time"

	"log/slog"

	"followarr/internal/catalog/tvdb"
	"followarr/internal/logging"
	"followarr/internal/store"
)

// horizonMonths bounds how far ahead the calendar looks.
const horizonMonths = 3

// Entry is one upcoming episode on the calendar.
type Entry struct {
	ShowID   int64
	ShowName string
	AirDate  time.Time
	Code     string
	Title    string
}

// Month groups entries by calendar month, entries sorted by air date.
type Month struct {
	Year    int
	Month   time.Month
	Entries []Entry
}

// Service assembles calendars from the follow store and the catalog.
type Service struct {
	store   *store.Store
	catalog tvdb.Searcher
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a calendar Service.
func New(st *store.Store, catalog tvdb.Searcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:   st,
		catalog: catalog,
		logger:  logging.NewComponentLogger(logger, "calendar"),
		now:     time.Now,
	}
}

// Upcoming returns the user's upcoming episodes over the next three months,
// grouped by month. A show whose episode listing fails is logged and
// skipped; one broken catalog entry must not empty the whole calendar.
func (s *Service) Upcoming(ctx context.Context, userID string) ([]Month, error) {
	follows, err := s.store.ListFollows(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(follows) == 0 {
		return nil, nil
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	horizon := today.AddDate(0, horizonMonths, 0)

	var entries []Entry
	for _, follow := range follows {
		episodes, err := s.catalog.ListEpisodes(ctx, follow.ShowID)
		if err != nil {
			s.logger.Warn("episode listing failed, skipping show",
				logging.Int64(logging.FieldShowID, follow.ShowID),
				logging.String(logging.FieldShowName, follow.ShowName),
				logging.Error(err))
			continue
		}
		for _, ep := range episodes {
			aired, err := time.Parse("2006-01-02", ep.Aired)
			if err != nil {
				continue
			}
			if aired.Before(today) || !aired.Before(horizon) {
				continue
			}
			entries = append(entries, Entry{
				ShowID:   follow.ShowID,
				ShowName: follow.ShowName,
				AirDate:  aired,
				Code:     ep.Code(),
				Title:    ep.Name,
			})
		}
	}
	return groupByMonth(entries), nil
}

func groupByMonth(entries []Entry) []Month {
	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AirDate.Equal(entries[j].AirDate) {
			return entries[i].AirDate.Before(entries[j].AirDate)
		}
		return entries[i].ShowName < entries[j].ShowName
	})

	var months []Month
	for _, entry := range entries {
		year, month := entry.AirDate.Year(), entry.AirDate.Month()
		if len(months) == 0 || months[len(months)-1].Year != year || months[len(months)-1].Month != month {
			months = append(months, Month{Year: year, Month: month})
		}
		last := &months[len(months)-1]
		last.Entries = append(last.Entries, entry)
	}
	return months
}
