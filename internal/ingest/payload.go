package ingest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"followarr/internal/episode"
)

// tautulliPayload models the Tautulli webhook body. Unknown fields are
// ignored. Tautulli's custom JSON templates render numeric fields as either
// numbers or strings depending on operator configuration, hence flexInt.
type tautulliPayload struct {
	Event     string  `json:"event"`
	MediaType string  `json:"media_type"`
	ShowName  string  `json:"grandparent_title"`
	Season    flexInt `json:"parent_index"`
	Number    flexInt `json:"index"`
	Title     string  `json:"title"`
	Summary   string  `json:"summary"`
	AirDate   string  `json:"originally_available_at"`
	Thumb     string  `json:"thumb"`
	GUID      string  `json:"guid"`
}

// isNewEpisode reports whether the payload announces a newly added episode.
// Other event and media types are acknowledged and skipped.
func (p tautulliPayload) isNewEpisode() bool {
	return p.Event == "media.added" && p.MediaType == "episode"
}

// validate checks the fields a new-episode payload must carry.
func (p tautulliPayload) validate() error {
	var missing []string
	if strings.TrimSpace(p.ShowName) == "" {
		missing = append(missing, "grandparent_title")
	}
	if !p.Season.set {
		missing = append(missing, "parent_index")
	}
	if !p.Number.set {
		missing = append(missing, "index")
	}
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// toEvent normalizes the payload into the canonical episode event.
func (p tautulliPayload) toEvent() episode.Event {
	event := episode.NewEvent(p.ShowName)
	event.TVDBID = parseTVDBGUID(p.GUID)
	event.Season = p.Season.value
	event.Number = p.Number.value
	event.Title = strings.TrimSpace(p.Title)
	event.Summary = strings.TrimSpace(p.Summary)
	event.AirDate = strings.TrimSpace(p.AirDate)
	event.Thumb = strings.TrimSpace(p.Thumb)
	return event
}

// flexInt decodes a JSON number or a numeric string.
type flexInt struct {
	value int
	set   bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	text = strings.Trim(text, `"`)
	if text == "" {
		return nil
	}
	parsed, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("not an integer: %q", text)
	}
	f.value = parsed
	f.set = true
	return nil
}

var guidPattern = regexp.MustCompile(`^([a-zA-Z]+)://(\d+)`)

// parseTVDBGUID extracts the numeric id from an agent GUID such as
// "tvdb://361753". Non-TVDB or malformed GUIDs yield 0; the dispatcher then
// falls back to name resolution.
func parseTVDBGUID(guid string) int64 {
	match := guidPattern.FindStringSubmatch(strings.TrimSpace(guid))
	if match == nil || !strings.EqualFold(match[1], "tvdb") {
		return 0
	}
	id, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// decodePayload parses the request body, tolerating unknown fields.
func decodePayload(data []byte) (tautulliPayload, error) {
	var payload tautulliPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return tautulliPayload{}, fmt.Errorf("invalid json: %w", err)
	}
	return payload, nil
}
