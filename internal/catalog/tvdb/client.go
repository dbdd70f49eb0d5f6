package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"followarr/internal/services"
)

const userAgent = "Followarr/0.1.0"

// maxEpisodePages bounds pagination for long-running shows.
const maxEpisodePages = 10

// Show is the catalog projection used across followarr. Not persisted; only
// the numeric ID survives into the follow table.
type Show struct {
	ID         int64
	Name       string
	Overview   string
	Network    string
	Status     string
	FirstAired string
	PosterURL  string
}

// Episode describes a single aired or upcoming episode of a show.
type Episode struct {
	ID           int64
	Name         string
	Overview     string
	SeasonNumber int
	Number       int
	Aired        string
}

// Code renders the conventional SxxExx episode code.
func (e Episode) Code() string {
	return fmt.Sprintf("S%02dE%02d", e.SeasonNumber, e.Number)
}

// Searcher defines the catalog operations consumed by the resolver,
// dispatcher, and calendar.
type Searcher interface {
	SearchSeries(ctx context.Context, query string) ([]Show, error)
	GetSeries(ctx context.Context, id int64) (*Show, error)
	ListEpisodes(ctx context.Context, id int64) ([]Episode, error)
}

// Client provides access to TheTVDB v4 API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a TVDB client.
func New(apiKey, baseURL, language string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tvdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tvdb base url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchSeries searches the catalog for series matching the query. An empty
// result set is a valid outcome, not an error.
func (c *Client) SearchSeries(ctx context.Context, query string) ([]Show, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "search", "query must not be empty", nil)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "series")

	var payload struct {
		Data []searchRecord `json:"data"`
	}
	if err := c.get(ctx, "/search?"+params.Encode(), &payload); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	shows := make([]Show, 0, len(payload.Data))
	for _, record := range payload.Data {
		show, ok := record.toShow()
		if !ok {
			continue
		}
		shows = append(shows, show)
	}
	return shows, nil
}

// GetSeries fetches the extended record for a single series.
func (c *Client) GetSeries(ctx context.Context, id int64) (*Show, error) {
	var payload struct {
		Data seriesRecord `json:"data"`
	}
	if err := c.get(ctx, fmt.Sprintf("/series/%d/extended", id), &payload); err != nil {
		return nil, err
	}
	show := payload.Data.toShow()
	return &show, nil
}

// ListEpisodes returns the default-order episode list for a series, following
// pagination up to maxEpisodePages.
func (c *Client) ListEpisodes(ctx context.Context, id int64) ([]Episode, error) {
	var episodes []Episode
	for page := 0; page < maxEpisodePages; page++ {
		var payload struct {
			Data struct {
				Episodes []episodeRecord `json:"episodes"`
			} `json:"data"`
			Links struct {
				Next string `json:"next"`
			} `json:"links"`
		}
		path := fmt.Sprintf("/series/%d/episodes/default?page=%d", id, page)
		if err := c.get(ctx, path, &payload); err != nil {
			return nil, err
		}
		for _, record := range payload.Data.Episodes {
			episodes = append(episodes, record.toEpisode())
		}
		if strings.TrimSpace(payload.Links.Next) == "" {
			break
		}
	}
	return episodes, nil
}

// get performs an authenticated GET, refreshing the login token once when the
// API answers 401.
func (c *Client) get(ctx context.Context, path string, out any) error {
	retried := false
	for {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", userAgent)
		if c.language != "" {
			req.Header.Set("Accept-Language", c.language)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return services.Wrap(services.ErrUnavailable, "catalog", "request", path, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !retried:
			resp.Body.Close()
			c.invalidateToken()
			retried = true
			continue
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return services.Wrap(services.ErrNotFound, "catalog", "request", path, nil)
		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			return services.Wrap(services.ErrUnavailable, "catalog", "request",
				fmt.Sprintf("%s returned %d", path, resp.StatusCode), nil)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return services.Wrap(services.ErrUnavailable, "catalog", "decode", path, err)
		}
		return nil
	}
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{"apikey": c.apiKey})
	if err != nil {
		return "", fmt.Errorf("marshal login body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUnavailable, "catalog", "login", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrUnavailable, "catalog", "login",
			fmt.Sprintf("returned %d", resp.StatusCode), nil)
	}

	var payload struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrUnavailable, "catalog", "login", "decode response", err)
	}
	if strings.TrimSpace(payload.Data.Token) == "" {
		return "", services.Wrap(services.ErrUnavailable, "catalog", "login", "empty token in response", nil)
	}

	c.token = payload.Data.Token
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// searchRecord models a TVDB v4 search hit. tvdb_id arrives as a string.
type searchRecord struct {
	TVDBID   string `json:"tvdb_id"`
	Name     string `json:"name"`
	Overview string `json:"overview"`
	Network  string `json:"network"`
	Status   string `json:"status"`
	Year     string `json:"year"`
	ImageURL string `json:"image_url"`
	AirTime  string `json:"first_air_time"`
}

func (r searchRecord) toShow() (Show, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.TVDBID), 10, 64)
	if err != nil || id <= 0 {
		return Show{}, false
	}
	firstAired := r.AirTime
	if firstAired == "" {
		firstAired = r.Year
	}
	return Show{
		ID:         id,
		Name:       r.Name,
		Overview:   r.Overview,
		Network:    r.Network,
		Status:     r.Status,
		FirstAired: firstAired,
		PosterURL:  r.ImageURL,
	}, true
}

// seriesRecord models the extended series payload, which nests status and
// network unlike search results.
type seriesRecord struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Overview   string `json:"overview"`
	Image      string `json:"image"`
	FirstAired string `json:"firstAired"`
	Status     struct {
		Name string `json:"name"`
	} `json:"status"`
	LatestNetwork struct {
		Name string `json:"name"`
	} `json:"latestNetwork"`
}

func (r seriesRecord) toShow() Show {
	return Show{
		ID:         r.ID,
		Name:       r.Name,
		Overview:   r.Overview,
		Network:    r.LatestNetwork.Name,
		Status:     r.Status.Name,
		FirstAired: r.FirstAired,
		PosterURL:  r.Image,
	}
}

type episodeRecord struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	SeasonNumber int    `json:"seasonNumber"`
	Number       int    `json:"number"`
	Aired        string `json:"aired"`
}

func (r episodeRecord) toEpisode() Episode {
	return Episode{
		ID:           r.ID,
		Name:         r.Name,
		Overview:     r.Overview,
		SeasonNumber: r.SeasonNumber,
		Number:       r.Number,
		Aired:        r.Aired,
	}
}
