package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"followarr/internal/services"
)

// Discord sends DMs through the Discord REST API. Opening a DM channel is a
// separate API call from posting to it, so resolved channel IDs are cached
// per recipient for the life of the client.
type Discord struct {
	token      string
	baseURL    string
	httpClient *http.Client

	mu       sync.Mutex
	channels map[string]string
}

var _ Messenger = (*Discord)(nil)

// Option configures a Discord client.
type Option func(*Discord)

// WithHTTPClient overrides the underlying HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Discord) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// NewDiscord creates a Discord DM client.
func NewDiscord(token, baseURL string, timeout time.Duration, opts ...Option) (*Discord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord bot token required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("discord base url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Discord{
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		channels:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SendDirectMessage opens (or reuses) the recipient's DM channel and posts
// the embed to it.
func (d *Discord) SendDirectMessage(ctx context.Context, userID string, embed Embed) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return services.Wrap(services.ErrValidation, "messenger", "send", "user id must not be empty", nil)
	}

	channelID, err := d.dmChannel(ctx, userID)
	if err != nil {
		return err
	}

	body := map[string]any{"embeds": []Embed{embed}}
	if err := d.post(ctx, "/channels/"+channelID+"/messages", body, nil); err != nil {
		if errors.Is(err, ErrRecipientUnreachable) {
			// The cached channel may be stale; drop it so the next
			// attempt reopens the DM.
			d.forgetChannel(userID)
		}
		return err
	}
	return nil
}

func (d *Discord) dmChannel(ctx context.Context, userID string) (string, error) {
	d.mu.Lock()
	cached, ok := d.channels[userID]
	d.mu.Unlock()
	if ok {
		return cached, nil
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := d.post(ctx, "/users/@me/channels", map[string]string{"recipient_id": userID}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", services.Wrap(services.ErrUnavailable, "messenger", "open dm", "channel id missing from response", nil)
	}

	d.mu.Lock()
	d.channels[userID] = resp.ID
	d.mu.Unlock()
	return resp.ID, nil
}

func (d *Discord) forgetChannel(userID string) {
	d.mu.Lock()
	delete(d.channels, userID)
	d.mu.Unlock()
}

func (d *Discord) post(ctx context.Context, path string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "messenger", "post", "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusNotFound:
		return services.Wrap(ErrRecipientUnreachable, "messenger", "post",
			fmt.Sprintf("discord returned %d", resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrUnavailable, "messenger", "post",
			fmt.Sprintf("discord returned %d", resp.StatusCode), nil)
	}

	if out == nil {
		return nil
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return services.Wrap(services.ErrUnavailable, "messenger", "post", "decode response", err)
	}
	return nil
}
