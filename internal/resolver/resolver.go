// Package resolver turns free-form show names into catalog entries. Exact
// matches win outright; otherwise the caller receives ranked candidates to
// disambiguate.
package resolver

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"followarr/internal/catalog/tvdb"
	"followarr/internal/logging"
	"followarr/internal/services"
	"followarr/internal/textutil"
)

const (
	// maxCandidates caps the disambiguation list shown to users.
	maxCandidates = 5

	// confidentThreshold is the similarity score above which the top
	// candidate is accepted without asking the user.
	confidentThreshold = 0.85
)

// Resolution is the outcome of resolving a query against the catalog.
type Resolution struct {
	// Match is the accepted show, or nil when the query is ambiguous.
	Match *tvdb.Show

	// Candidates holds the ranked alternatives when Match is nil. It is
	// capped at five entries, best first.
	Candidates []tvdb.Show
}

// Resolver resolves show names via a catalog searcher, memoizing query
// results for a configurable TTL.
type Resolver struct {
	searcher tvdb.Searcher
	logger   *slog.Logger
	cache    *queryCache
}

// New creates a Resolver. A non-positive ttl disables memoization.
func New(searcher tvdb.Searcher, ttl time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		searcher: searcher,
		logger:   logging.NewComponentLogger(logger, "resolver"),
		cache:    newQueryCache(ttl),
	}
}

// Resolve matches query against the catalog.
//
// A result whose normalized name equals the normalized query is accepted
// immediately. A lone search hit is accepted as well. Otherwise candidates
// are ranked by title similarity; a clear leader above the confidence
// threshold is accepted, anything murkier comes back as a candidate list.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "resolver", "resolve", "show name must not be empty", nil)
	}

	key := textutil.Normalize(query)
	if cached, ok := r.cache.get(key); ok {
		return cached, nil
	}

	shows, err := r.searcher.SearchSeries(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(shows) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "resolver", "resolve", "no shows matched "+query, nil)
	}

	resolution := r.rank(query, key, shows)
	r.cache.put(key, resolution)
	return resolution, nil
}

func (r *Resolver) rank(query, normalizedQuery string, shows []tvdb.Show) *Resolution {
	type scored struct {
		show  tvdb.Show
		score float64
	}

	ranked := make([]scored, 0, len(shows))
	for _, show := range shows {
		if textutil.Normalize(show.Name) == normalizedQuery {
			r.logger.Debug("exact title match",
				logging.String(logging.FieldShowName, show.Name),
				logging.Int64(logging.FieldShowID, show.ID))
			match := show
			return &Resolution{Match: &match}
		}
		ranked = append(ranked, scored{show: show, score: textutil.Similarity(query, show.Name)})
	}

	if len(ranked) == 1 {
		match := ranked[0].show
		return &Resolution{Match: &match}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if ranked[0].score >= confidentThreshold && ranked[0].score > ranked[1].score {
		match := ranked[0].show
		r.logger.Debug("confident fuzzy match",
			logging.String(logging.FieldShowName, match.Name),
			logging.Float64("score", ranked[0].score))
		return &Resolution{Match: &match}
	}

	limit := maxCandidates
	if len(ranked) < limit {
		limit = len(ranked)
	}
	candidates := make([]tvdb.Show, 0, limit)
	for _, entry := range ranked[:limit] {
		candidates = append(candidates, entry.show)
	}
	return &Resolution{Candidates: candidates}
}
