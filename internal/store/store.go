package store

import "time"

// User is the per-adventurer state row. InteractionsToday resets to
// zero the first time the user is counted on a new local day;
// LastResetDay remembers which day the today-counter belongs to.
// InteractionsToday never exceeds TotalInteractions.
type User struct {
	ID                int64
	Username          string
	FirstSeen         time.Time
	LastSeen          time.Time
	TotalInteractions int
	InteractionsToday int
	LastResetDay      string
	ActiveQuest       string
}

// MemoryPair is one entry of a user's bounded FIFO memory: a short
// prompt snippet and the response snippet it produced.
type MemoryPair struct {
	Prompt   string
	Response string
}

type Vote string

const (
	VoteUp   Vote = "up"
	VoteDown Vote = "down"
)

// Response kinds recorded per generated reply.
const (
	KindAdvice = "advice"
	KindQuest  = "quest"
)

// DaySnapshot aggregates one local calendar day for reporting.
type DaySnapshot struct {
	Day          string
	Interactions int
	AdviceCount  int
	QuestCount   int
	UniqueUsers  int
	Upvotes      int
	Downvotes    int
}

// LeaderboardEntry ranks a user by lifetime interactions.
type LeaderboardEntry struct {
	UserID       int64
	Username     string
	Interactions int
}

// Store abstracts persistence of users, responses, memories, votes and
// report state. Implementations must be safe for concurrent use and
// must apply each mutation atomically: a failed interaction increment
// may not leave the total and today counters out of step.
type Store interface {
	// UpsertUser creates the user row on first contact and refreshes
	// username/last-seen afterwards.
	UpsertUser(userID int64, username string, now time.Time) error
	// RecordInteraction resets the today-counter when day differs from
	// the stored reset day, then increments both counters and returns
	// the new values. A user with no prior row yields (1, 1).
	RecordInteraction(userID int64, day string) (total, today int, err error)
	GetUser(userID int64) (User, bool, error)

	// AddResponse records one generated reply and returns its id, the
	// reference later votes are keyed to.
	AddResponse(userID int64, ts time.Time, kind string, promptTokens, completionTokens int, chatID int64) (int64, error)
	// UserStats returns the user's lifetime reply count and total
	// tokens spent on them.
	UserStats(userID int64) (count, tokens int, err error)

	// Active quest slot.
	SetActiveQuest(userID int64, text string, ts time.Time) error
	ActiveQuest(userID int64) (string, bool, error)
	ClearActiveQuest(userID int64) error

	// Bounded FIFO memory. AppendMemory evicts the oldest pair once the
	// per-user cap is exceeded; RecentMemory returns oldest-to-newest.
	AppendMemory(userID int64, ts time.Time, prompt, response string) error
	RecentMemory(userID int64) ([]MemoryPair, error)

	// Feedback ledger. A repeated vote by the same user on the same
	// response overwrites the previous one.
	RecordVote(responseID, userID int64, ts time.Time, vote Vote) error
	VoteTotals(from, to time.Time) (up, down int, err error)

	// Per-day operation counters and report aggregation.
	IncDailyCounter(day, kind string) error
	DaySnapshot(day string, from, to time.Time) (DaySnapshot, error)
	Leaderboard(limit int) ([]LeaderboardEntry, error)

	// Report state survives restarts so a report already sent today is
	// not re-fired.
	LastReportDate() (string, error)
	SetLastReportDate(day string) error

	Close() error
}
