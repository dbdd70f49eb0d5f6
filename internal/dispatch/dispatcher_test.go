package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"followarr/internal/catalog/tvdb"
	"followarr/internal/episode"
	"followarr/internal/messenger"
	"followarr/internal/resolver"
	"followarr/internal/services"
	"followarr/internal/testsupport"
)

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []string
	failures map[string]error
}

func (f *fakeMessenger) SendDirectMessage(ctx context.Context, userID string, embed messenger.Embed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[userID]; ok {
		return err
	}
	f.sent = append(f.sent, userID)
	return nil
}

func (f *fakeMessenger) delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.sent...)
	sort.Strings(out)
	return out
}

type fakeCatalog struct {
	shows    map[int64]*tvdb.Show
	searches map[string][]tvdb.Show
	err      error
}

func (f *fakeCatalog) SearchSeries(ctx context.Context, query string) ([]tvdb.Show, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.searches[query], nil
}

func (f *fakeCatalog) GetSeries(ctx context.Context, id int64) (*tvdb.Show, error) {
	if f.err != nil {
		return nil, f.err
	}
	show, ok := f.shows[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "catalog", "get", "unknown series", nil)
	}
	return show, nil
}

func (f *fakeCatalog) ListEpisodes(ctx context.Context, id int64) ([]tvdb.Episode, error) {
	return nil, errors.New("not implemented")
}

func mandoEvent() episode.Event {
	event := episode.NewEvent("The Mandalorian")
	event.TVDBID = 361753
	event.Season = 2
	event.Number = 1
	event.Title = "Chapter 9: The Marshal"
	event.AirDate = "2020-10-30"
	return event
}

func TestDispatchFanOutFaultIsolation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustFollow(t, st, "alice", 361753, "The Mandalorian")
	testsupport.MustFollow(t, st, "bob", 361753, "The Mandalorian")
	testsupport.MustFollow(t, st, "carol", 361753, "The Mandalorian")

	msg := &fakeMessenger{failures: map[string]error{
		"bob": services.Wrap(services.ErrUnavailable, "messenger", "post", "timeout", nil),
	}}
	d := New(st, nil, nil, msg, nil)

	outcomes, err := d.Dispatch(context.Background(), mandoEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}

	byUser := make(map[string]Outcome, len(outcomes))
	for _, outcome := range outcomes {
		byUser[outcome.UserID] = outcome
	}
	if byUser["alice"].Status != StatusDelivered || byUser["carol"].Status != StatusDelivered {
		t.Errorf("siblings of a failed recipient must still be delivered: %+v", byUser)
	}
	if byUser["bob"].Status != StatusFailed {
		t.Errorf("bob outcome = %+v, want failed", byUser["bob"])
	}
	if got := msg.delivered(); len(got) != 2 {
		t.Errorf("delivered to %v, want exactly alice and carol", got)
	}
}

func TestDispatchUnreachableRecipient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustFollow(t, st, "dave", 361753, "The Mandalorian")

	msg := &fakeMessenger{failures: map[string]error{
		"dave": services.Wrap(messenger.ErrRecipientUnreachable, "messenger", "post", "discord returned 403", nil),
	}}
	d := New(st, nil, nil, msg, nil)

	outcomes, err := d.Dispatch(context.Background(), mandoEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusUnreachable {
		t.Fatalf("outcomes = %+v, want one unreachable", outcomes)
	}
}

func TestDispatchNoFollowers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	msg := &fakeMessenger{}
	d := New(st, nil, nil, msg, nil)

	outcomes, err := d.Dispatch(context.Background(), mandoEvent())
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if outcomes != nil {
		t.Errorf("expected no outcomes, got %+v", outcomes)
	}
	if len(msg.delivered()) != 0 {
		t.Error("no messages should be sent for a followerless show")
	}
}

func TestDispatchResolvesShowNameWithoutID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustFollow(t, st, "erin", 361753, "The Mandalorian")

	catalog := &fakeCatalog{
		searches: map[string][]tvdb.Show{
			"The Mandalorian": {{ID: 361753, Name: "The Mandalorian"}},
		},
	}
	res := resolver.New(catalog, 0, nil)
	msg := &fakeMessenger{}
	d := New(st, res, catalog, msg, nil)

	event := mandoEvent()
	event.TVDBID = 0
	outcomes, err := d.Dispatch(context.Background(), event)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusDelivered {
		t.Fatalf("outcomes = %+v", outcomes)
	}
}

func TestDispatchUnknownShowDropped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustFollow(t, st, "frank", 1, "Some Show")

	res := resolver.New(&fakeCatalog{}, 0, nil)
	msg := &fakeMessenger{}
	d := New(st, res, nil, msg, nil)

	event := episode.NewEvent("Totally Unknown Show")
	event.Season, event.Number, event.Title = 1, 1, "Pilot"
	_, err := d.Dispatch(context.Background(), event)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound drop, got %v", err)
	}
	if len(msg.delivered()) != 0 {
		t.Error("dropped event must not produce deliveries")
	}
	if got := d.Stats().EventsDropped; got != 1 {
		t.Errorf("dropped count = %d, want 1", got)
	}
}

func TestDispatchDuplicateEventsDuplicateNotifications(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustFollow(t, st, "gail", 361753, "The Mandalorian")

	msg := &fakeMessenger{}
	d := New(st, nil, nil, msg, nil)

	for i := 0; i < 2; i++ {
		if _, err := d.Dispatch(context.Background(), mandoEvent()); err != nil {
			t.Fatalf("Dispatch #%d: %v", i+1, err)
		}
	}
	if got := len(msg.delivered()); got != 2 {
		t.Errorf("delivered %d notifications, want 2 (no deduplication)", got)
	}
}

func TestDispatchCatalogEnrichmentFailureDegrades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.MustFollow(t, st, "hana", 361753, "The Mandalorian")

	catalog := &fakeCatalog{err: services.Wrap(services.ErrUnavailable, "catalog", "get", "down", nil)}
	msg := &fakeMessenger{}
	d := New(st, nil, catalog, msg, nil)

	outcomes, err := d.Dispatch(context.Background(), mandoEvent())
	if err != nil {
		t.Fatalf("Dispatch should not fail on enrichment errors: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != StatusDelivered {
		t.Fatalf("outcomes = %+v", outcomes)
	}
}

func TestRenderEmbed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	catalog := &fakeCatalog{shows: map[int64]*tvdb.Show{
		361753: {ID: 361753, Name: "The Mandalorian", Status: "Continuing", PosterURL: "https://img.example/poster.jpg"},
	}}
	d := New(st, nil, catalog, messenger.Noop{}, nil)

	event := mandoEvent()
	event.Summary = "The Mandalorian searches for others of his kind."
	embed := d.render(context.Background(), event, 361753, "THE MANDALORIAN")

	if embed.Title != "New Episode Added: The Mandalorian" {
		t.Errorf("title = %q", embed.Title)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != "https://img.example/poster.jpg" {
		t.Errorf("thumbnail = %+v, want catalog poster", embed.Thumbnail)
	}
	var episodeField, statusField string
	for _, field := range embed.Fields {
		switch field.Name {
		case "Episode":
			episodeField = field.Value
		case "Show Status":
			statusField = field.Value
		}
	}
	if episodeField != "S02E01 - Chapter 9: The Marshal" {
		t.Errorf("episode field = %q", episodeField)
	}
	if statusField != "Continuing" {
		t.Errorf("status field = %q", statusField)
	}
}

func TestHandleEventDoesNotPanic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := New(st, nil, nil, &fakeMessenger{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	event := episode.NewEvent("No ID Show")
	d.HandleEvent(ctx, event)
}

type logRecorder struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *logRecorder) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	return nil
}

func (h *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *logRecorder) WithGroup(string) slog.Handler      { return h }

func (h *logRecorder) level(msg string) (slog.Level, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Message == msg {
			return r.Level, true
		}
	}
	return 0, false
}

func TestHandleEventLogSeverityByCause(t *testing.T) {
	t.Run("unresolvable show warns", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		st := testsupport.MustOpenStore(t, cfg)
		rec := &logRecorder{}
		d := New(st, nil, nil, &fakeMessenger{}, slog.New(rec))

		d.HandleEvent(context.Background(), episode.NewEvent("No ID Show"))

		level, ok := rec.level("event dropped")
		if !ok {
			t.Fatal("expected an event dropped record")
		}
		if level != slog.LevelWarn {
			t.Errorf("unresolvable show logged at %v, want WARN", level)
		}
	})

	t.Run("store fault errors", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		st := testsupport.MustOpenStore(t, cfg)
		rec := &logRecorder{}
		d := New(st, nil, nil, &fakeMessenger{}, slog.New(rec))
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}

		d.HandleEvent(context.Background(), mandoEvent())

		level, ok := rec.level("event dropped")
		if !ok {
			t.Fatal("expected an event dropped record")
		}
		if level != slog.LevelError {
			t.Errorf("store fault logged at %v, want ERROR", level)
		}
	})
}
