// Package dispatch matches new-episode events to followers and fans out
// direct-message notifications.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"log/slog"

	"followarr/internal/catalog/tvdb"
	"followarr/internal/episode"
	"followarr/internal/logging"
	"followarr/internal/messenger"
	"followarr/internal/resolver"
	"followarr/internal/services"
	"followarr/internal/store"
)

// Status labels the result of one delivery attempt.
type Status string

const (
	StatusDelivered   Status = "delivered"
	StatusUnreachable Status = "unreachable"
	StatusFailed      Status = "failed"
)

// Outcome records the per-recipient result of a dispatch.
type Outcome struct {
	UserID string
	Status Status
	Err    error
}

// Stats counts dispatch activity since process start.
type Stats struct {
	EventsDispatched int64 `json:"events_dispatched"`
	EventsDropped    int64 `json:"events_dropped"`
	Delivered        int64 `json:"delivered"`
	Unreachable      int64 `json:"unreachable"`
	Failed           int64 `json:"failed"`
}

// Dispatcher resolves an event's show, loads its followers, and delivers a
// notification to each follower independently. Deliveries are attempted
// exactly once; duplicate events produce duplicate notifications.
type Dispatcher struct {
	store     *store.Store
	resolver  *resolver.Resolver
	catalog   tvdb.Searcher
	messenger messenger.Messenger
	logger    *slog.Logger

	dispatched  atomic.Int64
	dropped     atomic.Int64
	delivered   atomic.Int64
	unreachable atomic.Int64
	failed      atomic.Int64
}

// New creates a Dispatcher. catalog may be nil, which disables poster and
// status enrichment.
func New(st *store.Store, res *resolver.Resolver, catalog tvdb.Searcher, msg messenger.Messenger, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if msg == nil {
		msg = messenger.Noop{}
	}
	return &Dispatcher{
		store:     st,
		resolver:  res,
		catalog:   catalog,
		messenger: msg,
		logger:    logging.NewComponentLogger(logger, "dispatch"),
	}
}

// HandleEvent adapts Dispatch to the ingress handler contract. Errors are
// logged, not returned: the webhook has already been acknowledged. Expected
// conditions such as an unresolvable show log at warn, system faults at error.
func (d *Dispatcher) HandleEvent(ctx context.Context, event episode.Event) {
	outcomes, err := d.Dispatch(ctx, event)
	if err != nil {
		logDropped := d.logger.Error
		if services.UserFacing(err) {
			logDropped = d.logger.Warn
		}
		logDropped("event dropped",
			logging.String(logging.FieldEventID, event.ID),
			logging.String(logging.FieldShowName, event.ShowName),
			logging.Error(err))
		return
	}
	for _, outcome := range outcomes {
		if outcome.Status == StatusDelivered {
			continue
		}
		d.logger.Warn("notification not delivered",
			logging.String(logging.FieldEventID, event.ID),
			logging.String(logging.FieldUserID, outcome.UserID),
			logging.String("status", string(outcome.Status)),
			logging.Error(outcome.Err))
	}
}

// Dispatch delivers the event to every follower of its show, one attempt per
// recipient. A failed recipient never blocks the others. The returned slice
// holds one outcome per follower; a nil slice means the show had none.
func (d *Dispatcher) Dispatch(ctx context.Context, event episode.Event) ([]Outcome, error) {
	showID, showName, err := d.identifyShow(ctx, event)
	if err != nil {
		d.dropped.Add(1)
		return nil, err
	}

	followers, err := d.store.ListFollowers(ctx, showID)
	if err != nil {
		d.dropped.Add(1)
		return nil, err
	}
	d.dispatched.Add(1)
	if len(followers) == 0 {
		d.logger.Debug("no followers for show",
			logging.String(logging.FieldShowName, showName),
			logging.Int64(logging.FieldShowID, showID))
		return nil, nil
	}

	embed := d.render(ctx, event, showID, showName)

	d.logger.Info("dispatching notifications",
		logging.String(logging.FieldEventID, event.ID),
		logging.String(logging.FieldShowName, showName),
		logging.Int("followers", len(followers)))

	outcomes := make([]Outcome, len(followers))
	var wg sync.WaitGroup
	for i, follower := range followers {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			outcomes[i] = d.deliver(ctx, userID, embed)
		}(i, follower.UserID)
	}
	wg.Wait()
	return outcomes, nil
}

// Stats returns a snapshot of the dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		EventsDispatched: d.dispatched.Load(),
		EventsDropped:    d.dropped.Load(),
		Delivered:        d.delivered.Load(),
		Unreachable:      d.unreachable.Load(),
		Failed:           d.failed.Load(),
	}
}

// identifyShow returns the catalog id to match followers against. An id
// carried in the event wins; otherwise the show name goes through the
// resolver, and an ambiguous or unknown name drops the event.
func (d *Dispatcher) identifyShow(ctx context.Context, event episode.Event) (int64, string, error) {
	if event.TVDBID != 0 {
		return event.TVDBID, event.ShowName, nil
	}
	if d.resolver == nil {
		return 0, "", services.Wrap(services.ErrNotFound, "dispatch", "identify", "event carries no show id and no resolver is configured", nil)
	}
	resolution, err := d.resolver.Resolve(ctx, event.ShowName)
	if err != nil {
		return 0, "", err
	}
	if resolution.Match == nil {
		return 0, "", services.Wrap(services.ErrNotFound, "dispatch", "identify", "ambiguous show name "+event.ShowName, nil)
	}
	return resolution.Match.ID, resolution.Match.Name, nil
}

func (d *Dispatcher) deliver(ctx context.Context, userID string, embed messenger.Embed) Outcome {
	err := d.messenger.SendDirectMessage(ctx, userID, embed)
	switch {
	case err == nil:
		d.delivered.Add(1)
		return Outcome{UserID: userID, Status: StatusDelivered}
	case errors.Is(err, messenger.ErrRecipientUnreachable):
		d.unreachable.Add(1)
		return Outcome{UserID: userID, Status: StatusUnreachable, Err: err}
	default:
		d.failed.Add(1)
		return Outcome{UserID: userID, Status: StatusFailed, Err: err}
	}
}
