// Package bot implements the user-facing command surface: follow, unfollow,
// list, and calendar. Replies are rendered here; the chat transport only
// carries them.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"followarr/internal/calendar"
	"followarr/internal/catalog/tvdb"
	"followarr/internal/logging"
	"followarr/internal/messenger"
	"followarr/internal/resolver"
	"followarr/internal/services"
	"followarr/internal/store"
	"followarr/internal/textutil"
)

// Reply is a rendered command response. Candidates is populated when a show
// query was ambiguous and the user must pick one.
type Reply struct {
	Content    string
	Embed      *messenger.Embed
	Candidates []tvdb.Show
}

// Service orchestrates commands over the resolver, store, and calendar.
type Service struct {
	store    *store.Store
	resolver *resolver.Resolver
	catalog  tvdb.Searcher
	calendar *calendar.Service
	logger   *slog.Logger
}

// New creates a command Service.
func New(st *store.Store, res *resolver.Resolver, catalog tvdb.Searcher, cal *calendar.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:    st,
		resolver: res,
		catalog:  catalog,
		calendar: cal,
		logger:   logging.NewComponentLogger(logger, "bot"),
	}
}

// Follow subscribes the user to the show matching query. Unknown and
// ambiguous names are user-facing outcomes, not errors; transient catalog
// trouble and store faults surface as errors.
func (s *Service) Follow(ctx context.Context, userID, query string) (Reply, error) {
	resolution, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		if reply, ok := userFacingReply(err, query); ok {
			return reply, nil
		}
		return Reply{}, err
	}
	if resolution.Match == nil {
		return Reply{
			Content:    fmt.Sprintf("Multiple shows match %q. Pick one:", query),
			Candidates: resolution.Candidates,
		}, nil
	}

	show := resolution.Match
	if _, err := s.store.AddFollow(ctx, userID, show.ID, show.Name); err != nil {
		return Reply{}, err
	}
	s.logger.Info("follow added",
		logging.String(logging.FieldUserID, userID),
		logging.Int64(logging.FieldShowID, show.ID),
		logging.String(logging.FieldShowName, show.Name))
	return Reply{Embed: followEmbed(show)}, nil
}

// FollowByID subscribes the user to a specific catalog id, used after
// disambiguation. The show detail comes from the catalog so the persisted
// name is canonical.
func (s *Service) FollowByID(ctx context.Context, userID string, showID int64) (Reply, error) {
	show, err := s.catalog.GetSeries(ctx, showID)
	if err != nil {
		if reply, ok := userFacingReply(err, fmt.Sprintf("show id %d", showID)); ok {
			return reply, nil
		}
		return Reply{}, err
	}
	if _, err := s.store.AddFollow(ctx, userID, show.ID, show.Name); err != nil {
		return Reply{}, err
	}
	s.logger.Info("follow added",
		logging.String(logging.FieldUserID, userID),
		logging.Int64(logging.FieldShowID, show.ID),
		logging.String(logging.FieldShowName, show.Name))
	return Reply{Embed: followEmbed(show)}, nil
}

// unfollowThreshold is the similarity score a fuzzy match against the user's
// own follows must reach before being accepted.
const unfollowThreshold = 0.85

// Unfollow removes the user's subscription for the show matching query. The
// query resolves against the user's own follows, never the full catalog, so
// unfollowing works even when the catalog is down. Unfollowing a show the
// user does not follow is a no-op reply, not an error.
func (s *Service) Unfollow(ctx context.Context, userID, query string) (Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Reply{Content: "Please provide a show name."}, nil
	}

	follows, err := s.store.ListFollows(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	target, ok := matchFollow(query, follows)
	if !ok {
		return Reply{Content: fmt.Sprintf("You are not following anything matching %q.", query)}, nil
	}

	removed, err := s.store.RemoveFollow(ctx, userID, target.ShowID)
	if err != nil {
		return Reply{}, err
	}
	if !removed {
		return Reply{Content: fmt.Sprintf("You are not following %s.", target.ShowName)}, nil
	}
	s.logger.Info("follow removed",
		logging.String(logging.FieldUserID, userID),
		logging.Int64(logging.FieldShowID, target.ShowID),
		logging.String(logging.FieldShowName, target.ShowName))
	return Reply{Content: fmt.Sprintf("Unfollowed %s.", target.ShowName)}, nil
}

// matchFollow picks the follow the query refers to: a normalized-equal name
// wins, otherwise the clear best fuzzy match above the threshold.
func matchFollow(query string, follows []store.Follow) (store.Follow, bool) {
	normalized := textutil.Normalize(query)
	var best store.Follow
	var bestScore float64
	tied := false
	for _, follow := range follows {
		if textutil.Normalize(follow.ShowName) == normalized {
			return follow, true
		}
		score := textutil.Similarity(query, follow.ShowName)
		switch {
		case score > bestScore:
			best, bestScore, tied = follow, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestScore >= unfollowThreshold && !tied {
		return best, true
	}
	return store.Follow{}, false
}

// List renders the user's follows.
func (s *Service) List(ctx context.Context, userID string) (Reply, error) {
	follows, err := s.store.ListFollows(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if len(follows) == 0 {
		return Reply{Content: "You are not following any shows yet. Use follow to add one."}, nil
	}
	return Reply{Embed: listEmbed(follows)}, nil
}

// Calendar renders the user's upcoming episodes over the next three months.
func (s *Service) Calendar(ctx context.Context, userID string) (Reply, error) {
	months, err := s.calendar.Upcoming(ctx, userID)
	if err != nil {
		return Reply{}, err
	}
	if len(months) == 0 {
		return Reply{Content: "No upcoming episodes in the next three months."}, nil
	}
	return Reply{Embed: calendarEmbed(months)}, nil
}

// userFacingReply converts user-input outcomes into replies. System faults
// pass through as errors.
func userFacingReply(err error, query string) (Reply, bool) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return Reply{Content: fmt.Sprintf("Could not find a show matching %q.", strings.TrimSpace(query))}, true
	case errors.Is(err, services.ErrValidation):
		return Reply{Content: "Please provide a show name."}, true
	case errors.Is(err, services.ErrUnavailable):
		return Reply{Content: "The show catalog is unavailable right now. Please try again in a moment."}, true
	default:
		return Reply{}, false
	}
}
