package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, maxHistory int) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), maxHistory)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRecordInteractionFirstEver(t *testing.T) {
	st := newTestStore(t, 5)
	total, today, err := st.RecordInteraction(42, "2024-06-01")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if total != 1 || today != 1 {
		t.Fatalf("first interaction = (%d, %d), want (1, 1)", total, today)
	}
}

func TestRecordInteractionDailyReset(t *testing.T) {
	st := newTestStore(t, 5)
	for i := 0; i < 4; i++ {
		if _, _, err := st.RecordInteraction(7, "2024-06-01"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	// First interaction after the day rolls over starts at 1, not 5.
	total, today, err := st.RecordInteraction(7, "2024-06-02")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if today != 1 {
		t.Fatalf("today after reset = %d, want 1", today)
	}
	u, ok, err := st.GetUser(7)
	if err != nil || !ok {
		t.Fatalf("get user: ok=%v err=%v", ok, err)
	}
	if u.LastResetDay != "2024-06-02" {
		t.Fatalf("last reset day = %q, want 2024-06-02", u.LastResetDay)
	}
	if u.InteractionsToday > u.TotalInteractions {
		t.Fatalf("today %d exceeds total %d", u.InteractionsToday, u.TotalInteractions)
	}
}

func TestMemoryFIFOEviction(t *testing.T) {
	st := newTestStore(t, 5)
	now := time.Now()
	for i := 1; i <= 7; i++ {
		if err := st.AppendMemory(1, now, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	got, err := st.RecentMemory(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("memory length = %d, want 5", len(got))
	}
	// Exactly pairs #3..#7 survive, oldest first.
	for i, p := range got {
		want := fmt.Sprintf("q%d", i+3)
		if p.Prompt != want {
			t.Fatalf("memory[%d].Prompt = %q, want %q", i, p.Prompt, want)
		}
		if p.Response != fmt.Sprintf("a%d", i+3) {
			t.Fatalf("memory[%d].Response = %q", i, p.Response)
		}
	}
}

func TestMemoryIsPerUser(t *testing.T) {
	st := newTestStore(t, 2)
	now := time.Now()
	_ = st.AppendMemory(1, now, "qa", "aa")
	_ = st.AppendMemory(2, now, "qb", "ab")
	_ = st.AppendMemory(2, now, "qc", "ac")
	_ = st.AppendMemory(2, now, "qd", "ad")

	one, _ := st.RecentMemory(1)
	two, _ := st.RecentMemory(2)
	if len(one) != 1 || one[0].Prompt != "qa" {
		t.Fatalf("user 1 memory corrupted: %+v", one)
	}
	if len(two) != 2 || two[0].Prompt != "qc" || two[1].Prompt != "qd" {
		t.Fatalf("user 2 memory wrong: %+v", two)
	}
}

func TestActiveQuestLifecycle(t *testing.T) {
	st := newTestStore(t, 5)
	now := time.Now()

	if _, ok, err := st.ActiveQuest(9); err != nil || ok {
		t.Fatalf("expected no quest for fresh user, ok=%v err=%v", ok, err)
	}
	if err := st.SetActiveQuest(9, "Rescue the cartographer", now); err != nil {
		t.Fatalf("set: %v", err)
	}
	q1, ok, err := st.ActiveQuest(9)
	if err != nil || !ok || q1 != "Rescue the cartographer" {
		t.Fatalf("get = (%q, %v, %v)", q1, ok, err)
	}
	// Reads are idempotent.
	q2, _, _ := st.ActiveQuest(9)
	if q2 != q1 {
		t.Fatalf("second read differs: %q vs %q", q2, q1)
	}
	// Replacing does not touch memory.
	_ = st.AppendMemory(9, now, "p", "r")
	if err := st.SetActiveQuest(9, "Burn the ledger", now); err != nil {
		t.Fatalf("replace: %v", err)
	}
	mem, _ := st.RecentMemory(9)
	if len(mem) != 1 {
		t.Fatalf("quest replacement touched memory: %+v", mem)
	}
	if err := st.ClearActiveQuest(9); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := st.ActiveQuest(9); ok {
		t.Fatalf("quest survived clear")
	}
}

func TestVoteOverwriteAndTotals(t *testing.T) {
	st := newTestStore(t, 5)
	now := time.Now()
	respID, err := st.AddResponse(1, now, KindAdvice, 10, 20, 100)
	if err != nil {
		t.Fatalf("add response: %v", err)
	}

	if err := st.RecordVote(respID, 1, now, VoteUp); err != nil {
		t.Fatalf("vote: %v", err)
	}
	// Same user re-votes down: the up vote is replaced, not duplicated.
	if err := st.RecordVote(respID, 1, now, VoteDown); err != nil {
		t.Fatalf("revote: %v", err)
	}
	if err := st.RecordVote(respID, 2, now, VoteUp); err != nil {
		t.Fatalf("second voter: %v", err)
	}

	up, down, err := st.VoteTotals(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if up != 1 || down != 1 {
		t.Fatalf("totals = (%d up, %d down), want (1, 1)", up, down)
	}
}

func TestUserStatsCountsTokens(t *testing.T) {
	st := newTestStore(t, 5)
	now := time.Now()
	_, _ = st.AddResponse(3, now, KindAdvice, 10, 20, 0)
	_, _ = st.AddResponse(3, now, KindQuest, 5, 5, 0)
	count, tokens, err := st.UserStats(3)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 || tokens != 40 {
		t.Fatalf("stats = (%d, %d), want (2, 40)", count, tokens)
	}
}

func TestDaySnapshotAndLeaderboard(t *testing.T) {
	st := newTestStore(t, 5)
	now := time.Now()
	day := "2024-06-01"

	for i := 0; i < 3; i++ {
		_, _, _ = st.RecordInteraction(1, day)
		_ = st.IncDailyCounter(day, KindAdvice)
	}
	_, _, _ = st.RecordInteraction(2, day)
	_ = st.IncDailyCounter(day, KindQuest)

	respID, _ := st.AddResponse(1, now, KindAdvice, 1, 1, 0)
	_, _ = st.AddResponse(2, now, KindQuest, 1, 1, 0)
	_ = st.RecordVote(respID, 2, now, VoteUp)

	snap, err := st.DaySnapshot(day, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Interactions != 4 || snap.AdviceCount != 3 || snap.QuestCount != 1 {
		t.Fatalf("counters = %+v", snap)
	}
	if snap.UniqueUsers != 2 {
		t.Fatalf("unique users = %d, want 2", snap.UniqueUsers)
	}
	if snap.Upvotes != 1 || snap.Downvotes != 0 {
		t.Fatalf("votes = (%d, %d)", snap.Upvotes, snap.Downvotes)
	}

	top, err := st.Leaderboard(5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(top) != 2 || top[0].UserID != 1 || top[0].Interactions != 3 {
		t.Fatalf("leaderboard = %+v", top)
	}
}

func TestReportStatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	st, err := NewSQLite(path, 5)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if day, err := st.LastReportDate(); err != nil || day != "" {
		t.Fatalf("fresh report state = (%q, %v)", day, err)
	}
	if err := st.SetLastReportDate("2024-06-01"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = st.Close()

	// Restart before midnight must not re-fire the report.
	st2, err := NewSQLite(path, 5)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = st2.Close() }()
	day, err := st2.LastReportDate()
	if err != nil || day != "2024-06-01" {
		t.Fatalf("report state after reopen = (%q, %v)", day, err)
	}
}
