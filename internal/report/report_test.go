package report

import (
	"strings"
	"testing"
	"time"

	"dungeon-oracle/internal/store"
)

type fakeSource struct {
	snap store.DaySnapshot
	top  []store.LeaderboardEntry
}

func (f fakeSource) DaySnapshot(day string, from, to time.Time) (store.DaySnapshot, error) {
	return f.snap, nil
}

func (f fakeSource) Leaderboard(limit int) ([]store.LeaderboardEntry, error) {
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func TestReportText(t *testing.T) {
	src := fakeSource{
		snap: store.DaySnapshot{
			Day:          "2024-06-01",
			Interactions: 12,
			AdviceCount:  8,
			QuestCount:   3,
			UniqueUsers:  4,
			Upvotes:      5,
			Downvotes:    1,
		},
		top: []store.LeaderboardEntry{
			{UserID: 1, Username: "grog", Interactions: 7},
			{UserID: 2, Username: "", Interactions: 3},
		},
	}

	sum, err := Build(src, "Dungeon Oracle", "2024-06-01", time.Now(), time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	text := sum.Text()

	for _, want := range []string{
		"Dungeon Oracle Daily Report",
		"2024-06-01",
		"Interactions: 12",
		"Users: 4",
		"Advice: 8 | Quests: 3",
		"👍 5 / 👎 1",
		"1. @grog — 7",
		"2. @unknown — 3",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("report missing %q:\n%s", want, text)
		}
	}
}

func TestReportTextEmptyLeaderboard(t *testing.T) {
	sum, err := Build(fakeSource{snap: store.DaySnapshot{Day: "2024-06-01"}}, "Dungeon Oracle", "2024-06-01", time.Now(), time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(sum.Text(), "—") {
		t.Fatalf("empty leaderboard should render a dash:\n%s", sum.Text())
	}
}
