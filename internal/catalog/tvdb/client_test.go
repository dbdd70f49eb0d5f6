package tvdb_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"followarr/internal/catalog/tvdb"
	"followarr/internal/services"
)

func newTestClient(t *testing.T, handler http.Handler) (*tvdb.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := tvdb.New("key", server.URL, "eng", 5*time.Second)
	if err != nil {
		t.Fatalf("tvdb.New: %v", err)
	}
	return client, server
}

func loginHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["apikey"] == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"token": token},
		})
	}
}

func TestSearchSeriesParsesResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", loginHandler("tok-1"))
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "series" {
			t.Errorf("unexpected type param %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{
					"tvdb_id":  "361753",
					"name":     "The Mandalorian",
					"overview": "A lone gunfighter.",
					"network":  "Disney+",
					"status":   "Continuing",
					"year":     "2019",
					"image_url": "https://artworks.example/mando.jpg",
				},
				{"tvdb_id": "not-a-number", "name": "Broken"},
			},
		})
	})
	client, _ := newTestClient(t, mux)

	shows, err := client.SearchSeries(context.Background(), "mandalorian")
	if err != nil {
		t.Fatalf("SearchSeries: %v", err)
	}
	if len(shows) != 1 {
		t.Fatalf("expected 1 show (malformed id skipped), got %d", len(shows))
	}
	show := shows[0]
	if show.ID != 361753 || show.Name != "The Mandalorian" || show.PosterURL == "" {
		t.Fatalf("unexpected show %+v", show)
	}
}

func TestSearchSeriesEmptyResultIsNotError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", loginHandler("tok"))
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	client, _ := newTestClient(t, mux)

	shows, err := client.SearchSeries(context.Background(), "no such show")
	if err != nil {
		t.Fatalf("SearchSeries: %v", err)
	}
	if len(shows) != 0 {
		t.Fatalf("expected no shows, got %d", len(shows))
	}
}

func TestGetSeriesParsesExtendedRecord(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", loginHandler("tok"))
	mux.HandleFunc("GET /series/361753/extended", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"id":         361753,
				"name":       "The Mandalorian",
				"overview":   "A lone gunfighter.",
				"image":      "https://artworks.example/mando.jpg",
				"firstAired": "2019-11-12",
				"status":     map[string]string{"name": "Continuing"},
				"latestNetwork": map[string]string{"name": "Disney+"},
			},
		})
	})
	client, _ := newTestClient(t, mux)

	show, err := client.GetSeries(context.Background(), 361753)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if show.Status != "Continuing" || show.Network != "Disney+" {
		t.Fatalf("nested fields not flattened: %+v", show)
	}
}

func TestGetReloginsOnceOn401(t *testing.T) {
	var logins atomic.Int32
	var tokens atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"token": "tok"},
		})
	})
	mux.HandleFunc("GET /series/1/extended", func(w http.ResponseWriter, r *http.Request) {
		if tokens.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": 1, "name": "Show"},
		})
	})
	client, _ := newTestClient(t, mux)

	if _, err := client.GetSeries(context.Background(), 1); err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if logins.Load() != 2 {
		t.Fatalf("expected a single re-login, got %d logins", logins.Load())
	}
}

func TestGetSeriesNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", loginHandler("tok"))
	mux.HandleFunc("GET /series/99/extended", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.GetSeries(context.Background(), 99)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", loginHandler("tok"))
	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.SearchSeries(context.Background(), "anything")
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestListEpisodesFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", loginHandler("tok"))
	mux.HandleFunc("GET /series/1/episodes/default", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch page {
		case "0":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"episodes": []map[string]any{
						{"id": 10, "name": "Chapter 1", "seasonNumber": 1, "number": 1, "aired": "2019-11-12"},
					},
				},
				"links": map[string]any{"next": "/series/1/episodes/default?page=1"},
			})
		case "1":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"episodes": []map[string]any{
						{"id": 11, "name": "Chapter 2", "seasonNumber": 1, "number": 2, "aired": "2019-11-15"},
					},
				},
				"links": map[string]any{"next": ""},
			})
		default:
			t.Errorf("unexpected page %q", page)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client, _ := newTestClient(t, mux)

	episodes, err := client.ListEpisodes(context.Background(), 1)
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes across pages, got %d", len(episodes))
	}
	if episodes[1].Code() != "S01E02" {
		t.Fatalf("unexpected episode code %q", episodes[1].Code())
	}
}
