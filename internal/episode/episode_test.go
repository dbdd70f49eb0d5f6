package episode_test

import (
	"testing"

	"followarr/internal/episode"
)

func TestCode(t *testing.T) {
	cases := []struct {
		season int
		number int
		want   string
	}{
		{1, 1, "S01E01"},
		{2, 13, "S02E13"},
		{11, 100, "S11E100"},
		{0, 0, "S00E00"},
	}
	for _, tc := range cases {
		ev := episode.Event{Season: tc.season, Number: tc.number}
		if got := ev.Code(); got != tc.want {
			t.Errorf("Code() for s%d e%d = %q, want %q", tc.season, tc.number, got, tc.want)
		}
	}
}

func TestNewEventAssignsDistinctIDs(t *testing.T) {
	a := episode.NewEvent("  The Bear ")
	b := episode.NewEvent("The Bear")
	if a.ID == "" || b.ID == "" {
		t.Fatal("expected non-empty delivery IDs")
	}
	if a.ID == b.ID {
		t.Fatal("expected distinct delivery IDs for separate events")
	}
	if a.ShowName != "The Bear" {
		t.Errorf("show name not trimmed: %q", a.ShowName)
	}
	if a.ReceivedAt.IsZero() {
		t.Error("expected receive timestamp to be set")
	}
}
