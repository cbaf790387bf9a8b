package report

import (
	"fmt"
	"strings"
	"time"

	"dungeon-oracle/internal/store"
)

// Source is the slice of the store the report reads. Aggregation is not
// transactionally consistent with concurrent increments; a report a few
// interactions stale is fine.
type Source interface {
	DaySnapshot(day string, from, to time.Time) (store.DaySnapshot, error)
	Leaderboard(limit int) ([]store.LeaderboardEntry, error)
}

const leaderboardSize = 5

// Summary is one local day's aggregate activity.
type Summary struct {
	BotName  string
	Snapshot store.DaySnapshot
	Top      []store.LeaderboardEntry
}

// Build aggregates the given local day.
func Build(src Source, botName, day string, from, to time.Time) (*Summary, error) {
	snap, err := src.DaySnapshot(day, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate day %s: %w", day, err)
	}
	top, err := src.Leaderboard(leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard: %w", err)
	}
	return &Summary{BotName: botName, Snapshot: snap, Top: top}, nil
}

// Text renders the report message sent to the admin.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "📮 *%s Daily Report* — %s\n", s.BotName, s.Snapshot.Day)
	fmt.Fprintf(&b, "Interactions: %d\n", s.Snapshot.Interactions)
	fmt.Fprintf(&b, "Users: %d\n", s.Snapshot.UniqueUsers)
	fmt.Fprintf(&b, "Advice: %d | Quests: %d\n", s.Snapshot.AdviceCount, s.Snapshot.QuestCount)
	fmt.Fprintf(&b, "Votes: 👍 %d / 👎 %d\n\n", s.Snapshot.Upvotes, s.Snapshot.Downvotes)
	b.WriteString("Top heroes:\n")
	if len(s.Top) == 0 {
		b.WriteString("—")
		return b.String()
	}
	for i, e := range s.Top {
		name := e.Username
		if name == "" {
			name = "unknown"
		}
		fmt.Fprintf(&b, "%d. @%s — %d", i+1, name, e.Interactions)
		if i < len(s.Top)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
