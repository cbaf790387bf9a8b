package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
  user_id INTEGER PRIMARY KEY,
  username TEXT,
  first_seen_ts INTEGER,
  last_seen_ts INTEGER,
  total_interactions INTEGER NOT NULL DEFAULT 0,
  interactions_today INTEGER NOT NULL DEFAULT 0,
  last_reset_day TEXT NOT NULL DEFAULT '',
  active_quest TEXT NOT NULL DEFAULT '',
  quest_set_ts INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS responses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  ts INTEGER NOT NULL,
  kind TEXT NOT NULL,
  prompt_tokens INTEGER NOT NULL DEFAULT 0,
  completion_tokens INTEGER NOT NULL DEFAULT 0,
  chat_id INTEGER,
  FOREIGN KEY (user_id) REFERENCES users(user_id)
);
CREATE TABLE IF NOT EXISTS memories (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  ts INTEGER NOT NULL,
  prompt TEXT NOT NULL,
  response TEXT NOT NULL,
  FOREIGN KEY (user_id) REFERENCES users(user_id)
);
CREATE TABLE IF NOT EXISTS feedback (
  response_id INTEGER NOT NULL,
  user_id INTEGER NOT NULL,
  ts INTEGER NOT NULL,
  rating TEXT NOT NULL CHECK(rating IN ('up','down')),
  PRIMARY KEY (response_id, user_id)
);
CREATE TABLE IF NOT EXISTS daily_counters (
  day TEXT PRIMARY KEY,
  interactions INTEGER NOT NULL DEFAULT 0,
  advice_count INTEGER NOT NULL DEFAULT 0,
  quest_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS report_state (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  last_report_date TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db         *sql.DB
	maxHistory int
}

// NewSQLite opens (creating if needed) the database at filePath.
// maxHistory is the per-user memory cap enforced by AppendMemory.
func NewSQLite(filePath string, maxHistory int) (*SQLiteStore, error) {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)
	st := &SQLiteStore{db: db, maxHistory: maxHistory}
	if err := st.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) UpsertUser(userID int64, username string, now time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, username, first_seen_ts, last_seen_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET username = excluded.username, last_seen_ts = excluded.last_seen_ts`,
		userID, username, now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) RecordInteraction(userID int64, day string) (int, int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total, today int
	var resetDay string
	err = tx.QueryRow(
		`SELECT total_interactions, interactions_today, last_reset_day FROM users WHERE user_id = ?`,
		userID,
	).Scan(&total, &today, &resetDay)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First ever interaction creates the row implicitly.
		if _, err := tx.Exec(`INSERT INTO users (user_id) VALUES (?)`, userID); err != nil {
			return 0, 0, fmt.Errorf("failed to create user %d: %w", userID, err)
		}
		total, today = 0, 0
	case err != nil:
		return 0, 0, fmt.Errorf("failed to read counters for user %d: %w", userID, err)
	}

	if resetDay != day {
		today = 0
	}
	total++
	today++

	if _, err := tx.Exec(
		`UPDATE users SET total_interactions = ?, interactions_today = ?, last_reset_day = ? WHERE user_id = ?`,
		total, today, day, userID,
	); err != nil {
		return 0, 0, fmt.Errorf("failed to update counters for user %d: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit counters for user %d: %w", userID, err)
	}
	return total, today, nil
}

func (s *SQLiteStore) GetUser(userID int64) (User, bool, error) {
	var u User
	var firstSeen, lastSeen int64
	err := s.db.QueryRow(`
		SELECT user_id, COALESCE(username, ''), COALESCE(first_seen_ts, 0), COALESCE(last_seen_ts, 0),
		       total_interactions, interactions_today, last_reset_day, active_quest
		FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.ID, &u.Username, &firstSeen, &lastSeen, &u.TotalInteractions, &u.InteractionsToday, &u.LastResetDay, &u.ActiveQuest)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("failed to read user %d: %w", userID, err)
	}
	u.FirstSeen = time.Unix(firstSeen, 0)
	u.LastSeen = time.Unix(lastSeen, 0)
	return u, true, nil
}

func (s *SQLiteStore) AddResponse(userID int64, ts time.Time, kind string, promptTokens, completionTokens int, chatID int64) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO responses (user_id, ts, kind, prompt_tokens, completion_tokens, chat_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, ts.Unix(), kind, promptTokens, completionTokens, chatID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve response id: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UserStats(userID int64) (int, int, error) {
	var count, tokens int
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(prompt_tokens + completion_tokens), 0)
		FROM responses WHERE user_id = ?`,
		userID,
	).Scan(&count, &tokens)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read stats for user %d: %w", userID, err)
	}
	return count, tokens, nil
}

func (s *SQLiteStore) SetActiveQuest(userID int64, text string, ts time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, active_quest, quest_set_ts) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET active_quest = excluded.active_quest, quest_set_ts = excluded.quest_set_ts`,
		userID, text, ts.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set active quest for user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) ActiveQuest(userID int64) (string, bool, error) {
	var quest string
	err := s.db.QueryRow(`SELECT active_quest FROM users WHERE user_id = ?`, userID).Scan(&quest)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && quest == "") {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read active quest for user %d: %w", userID, err)
	}
	return quest, true, nil
}

func (s *SQLiteStore) ClearActiveQuest(userID int64) error {
	_, err := s.db.Exec(`UPDATE users SET active_quest = '', quest_set_ts = 0 WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear active quest for user %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) AppendMemory(userID int64, ts time.Time, prompt, response string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO memories (user_id, ts, prompt, response) VALUES (?, ?, ?, ?)`,
		userID, ts.Unix(), prompt, response,
	); err != nil {
		return fmt.Errorf("failed to append memory: %w", err)
	}
	// Strict FIFO: evict everything older than the newest maxHistory rows.
	if _, err := tx.Exec(`
		DELETE FROM memories WHERE user_id = ? AND id NOT IN (
			SELECT id FROM memories WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`,
		userID, userID, s.maxHistory,
	); err != nil {
		return fmt.Errorf("failed to trim memory: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit memory append: %w", err)
	}
	return nil
}

// RecentMemory returns the retained pairs oldest-to-newest, so prompt
// assembly naturally puts the freshest context last.
func (s *SQLiteStore) RecentMemory(userID int64) ([]MemoryPair, error) {
	rows, err := s.db.Query(
		`SELECT prompt, response FROM memories WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory for user %d: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []MemoryPair
	for rows.Next() {
		var p MemoryPair
		if err := rows.Scan(&p.Prompt, &p.Response); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memory rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) RecordVote(responseID, userID int64, ts time.Time, vote Vote) error {
	_, err := s.db.Exec(`
		INSERT INTO feedback (response_id, user_id, ts, rating) VALUES (?, ?, ?, ?)
		ON CONFLICT(response_id, user_id) DO UPDATE SET rating = excluded.rating, ts = excluded.ts`,
		responseID, userID, ts.Unix(), string(vote),
	)
	if err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return nil
}

func (s *SQLiteStore) VoteTotals(from, to time.Time) (int, int, error) {
	var up, down int
	err := s.db.QueryRow(`
		SELECT
		  COALESCE(SUM(CASE WHEN rating = 'up' THEN 1 ELSE 0 END), 0),
		  COALESCE(SUM(CASE WHEN rating = 'down' THEN 1 ELSE 0 END), 0)
		FROM feedback WHERE ts >= ? AND ts < ?`,
		from.Unix(), to.Unix(),
	).Scan(&up, &down)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to aggregate votes: %w", err)
	}
	return up, down, nil
}

func (s *SQLiteStore) IncDailyCounter(day, kind string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO daily_counters (day, interactions) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET interactions = interactions + 1`,
		day,
	); err != nil {
		return fmt.Errorf("failed to bump day counter: %w", err)
	}
	var col string
	switch kind {
	case KindAdvice:
		col = "advice_count"
	case KindQuest:
		col = "quest_count"
	}
	if col != "" {
		if _, err := tx.Exec(
			`UPDATE daily_counters SET `+col+` = `+col+` + 1 WHERE day = ?`, day,
		); err != nil {
			return fmt.Errorf("failed to bump %s counter: %w", kind, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit day counter: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DaySnapshot(day string, from, to time.Time) (DaySnapshot, error) {
	snap := DaySnapshot{Day: day}
	err := s.db.QueryRow(
		`SELECT interactions, advice_count, quest_count FROM daily_counters WHERE day = ?`, day,
	).Scan(&snap.Interactions, &snap.AdviceCount, &snap.QuestCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return DaySnapshot{}, fmt.Errorf("failed to read day counters: %w", err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT user_id) FROM responses WHERE ts >= ? AND ts < ?`,
		from.Unix(), to.Unix(),
	).Scan(&snap.UniqueUsers); err != nil {
		return DaySnapshot{}, fmt.Errorf("failed to count unique users: %w", err)
	}
	up, down, err := s.VoteTotals(from, to)
	if err != nil {
		return DaySnapshot{}, err
	}
	snap.Upvotes, snap.Downvotes = up, down
	return snap, nil
}

func (s *SQLiteStore) Leaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := s.db.Query(`
		SELECT user_id, COALESCE(username, ''), total_interactions
		FROM users
		WHERE total_interactions > 0
		ORDER BY total_interactions DESC, user_id ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Interactions); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) LastReportDate() (string, error) {
	var day string
	err := s.db.QueryRow(`SELECT last_report_date FROM report_state WHERE id = 1`).Scan(&day)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read report state: %w", err)
	}
	return day, nil
}

func (s *SQLiteStore) SetLastReportDate(day string) error {
	_, err := s.db.Exec(`
		INSERT INTO report_state (id, last_report_date) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_report_date = excluded.last_report_date`,
		day,
	)
	if err != nil {
		return fmt.Errorf("failed to set report state: %w", err)
	}
	return nil
}
