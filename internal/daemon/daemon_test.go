package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"followarr/internal/daemon"
	"followarr/internal/testsupport"
)

func startDaemon(t *testing.T) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return d
}

func TestDaemonServesHealthAndStatus(t *testing.T) {
	d := startDaemon(t)
	base := "http://" + d.Addr()

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	defer resp.Body.Close()
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Error("status should report running")
	}
	if status.DatabasePath == "" {
		t.Error("status should carry the database path")
	}
}

func TestDaemonSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer first.Close()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close()
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second instance should fail to acquire the lock")
	}
}

func TestDaemonWebhookAccepted(t *testing.T) {
	d := startDaemon(t)

	payload := map[string]any{
		"event":                   "media.added",
		"media_type":              "episode",
		"grandparent_title":       "The Mandalorian",
		"parent_index":            2,
		"index":                   1,
		"title":                   "Chapter 9: The Marshal",
		"originally_available_at": "2020-10-30",
		"guid":                    "tvdb://361753",
	}
	body, _ := json.Marshal(payload)
	resp, err := http.Post("http://"+d.Addr()+"/webhook/tautulli", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("webhook status = %d, want 202", resp.StatusCode)
	}

	deadline := time.After(2 * time.Second)
	for {
		status := d.Status(context.Background())
		if status.Ingress.Accepted == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("accepted count = %d, want 1", status.Ingress.Accepted)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	d := startDaemon(t)
	d.Stop()
	d.Stop()
}
