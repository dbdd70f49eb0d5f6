// Package daemon wires the long-running process: follow store, webhook
// ingress, and notification dispatcher under one lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"followarr/internal/catalog/tvdb"
	"followarr/internal/config"
	"followarr/internal/dispatch"
	"followarr/internal/ingest"
	"followarr/internal/logging"
	"followarr/internal/messenger"
	"followarr/internal/resolver"
	"followarr/internal/store"
)

// Status is the runtime snapshot served by GET /status and the status CLI
// command.
type Status struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	StartedAt    time.Time      `json:"started_at"`
	DatabasePath string         `json:"database_path"`
	ListenAddr   string         `json:"listen_addr"`
	Store        store.Stats    `json:"store"`
	Ingress      ingest.Stats   `json:"ingress"`
	Dispatch     dispatch.Stats `json:"dispatch"`
}

// Daemon owns the webhook ingress and dispatcher and their shared
// dependencies.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	server     *ingest.Server

	lockPath  string
	lock      *flock.Flock
	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// New builds a daemon from configuration. The store is opened here; the
// catalog client and messenger come from their config constructors.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	catalog, err := tvdb.New(
		cfg.TVDB.APIKey,
		cfg.TVDB.BaseURL,
		cfg.TVDB.Language,
		time.Duration(cfg.TVDB.RequestTimeout)*time.Second,
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("catalog client: %w", err)
	}

	msg, err := messenger.NewFromConfig(cfg)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("messenger: %w", err)
	}

	cacheTTL := time.Duration(cfg.TVDB.CacheTTLMinutes) * time.Minute
	res := resolver.New(catalog, cacheTTL, logger)
	dispatcher := dispatch.New(st, res, catalog, msg, logger)

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      st,
		dispatcher: dispatcher,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}

	server, err := ingest.NewServer(
		cfg.Webhook.Bind,
		cfg.Webhook.QueueSize,
		dispatcher.HandleEvent,
		logger,
		ingest.WithStatusFunc(d.statusDocument),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the single-instance lock and brings up the ingress server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another followarr instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.server.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("followarr daemon started",
		logging.String("address", d.server.Addr()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop drains the ingress server and releases the lock. The ingress worker
// runs detached from the run context, so queued events still dispatch even
// when Stop follows a signal that already cancelled it.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.server.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("followarr daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the ingress listener address.
func (d *Daemon) Addr() string { return d.server.Addr() }

// Status returns the current runtime snapshot.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		DatabasePath: d.cfg.DatabasePath(),
		ListenAddr:   d.server.Addr(),
		Ingress:      d.server.Stats(),
		Dispatch:     d.dispatcher.Stats(),
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Store = stats
	} else {
		d.logger.Warn("store stats unavailable", logging.Error(err))
	}
	return status
}

func (d *Daemon) statusDocument(ctx context.Context) (any, error) {
	return d.Status(ctx), nil
}
