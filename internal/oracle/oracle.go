package oracle

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"dungeon-oracle/internal/chaos"
	"dungeon-oracle/internal/clock"
	"dungeon-oracle/internal/llm"
	"dungeon-oracle/internal/persona"
	"dungeon-oracle/internal/store"
)

// memorySnippetLimit caps how much of a question/answer is kept as a
// memory pair.
const memorySnippetLimit = 180

// memoryWorthyLen: short questions carry no context worth remembering.
const memoryWorthyLen = 80

// Service orchestrates one advice or quest request: count the
// interaction, derive the chaos meter, compose the provider call, fall
// back to canned text on provider failure, and thread the result back
// into quest memory.
type Service struct {
	store   store.Store
	llm     llm.Client
	persona *persona.Persona
	clock   *clock.Resolver

	systemTemperature float64
	timeout           time.Duration

	paramsMu sync.RWMutex
	params   chaos.Params

	// Per-user exclusive sections; rapid double-submits from one user
	// must not race on counters or memory. Users never block each other.
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

func New(st store.Store, client llm.Client, p *persona.Persona, res *clock.Resolver, params chaos.Params, systemTemperature float64, timeout time.Duration) *Service {
	return &Service{
		store:             st,
		llm:               client,
		persona:           p,
		clock:             res,
		systemTemperature: systemTemperature,
		timeout:           timeout,
		params:            params,
		locks:             make(map[int64]*sync.Mutex),
	}
}

// Reply is a generated (or canned) response plus the meter values the
// transport layer surfaces to the user.
type Reply struct {
	Text        string
	ResponseID  int64
	Chaos       float64
	Temperature float32
	Fallback    bool
}

func (s *Service) lockUser(userID int64) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	s.locksMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// ChaosParams returns the current ramp shape.
func (s *Service) ChaosParams() chaos.Params {
	s.paramsMu.RLock()
	defer s.paramsMu.RUnlock()
	return s.params
}

// SetChaosParams retunes the ramp at runtime (admin command).
func (s *Service) SetChaosParams(p chaos.Params) {
	s.paramsMu.Lock()
	defer s.paramsMu.Unlock()
	s.params = p
}

// Advise answers an /advice request. The active quest, if any, is
// folded into the question; an empty question with an active quest asks
// for strategy on that quest.
func (s *Service) Advise(ctx context.Context, userID int64, username, question string, chatID int64) (Reply, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	now := s.clock.Now()
	day := s.clock.DayKey(now)

	if err := s.store.UpsertUser(userID, username, now); err != nil {
		return Reply{}, err
	}
	_, today, err := s.store.RecordInteraction(userID, day)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to count interaction: %w", err)
	}
	if err := s.store.IncDailyCounter(day, store.KindAdvice); err != nil {
		log.Printf("⚠️ Failed to bump day counter: %v", err)
	}

	ch := chaos.Compute(today, s.ChaosParams())
	temp := chaos.Temperature(s.systemTemperature, ch)

	quest, _, err := s.questContext(userID)
	if err != nil {
		log.Printf("⚠️ Failed to read active quest for %d: %v", userID, err)
	}
	switch {
	case question == "" && quest != "":
		question = "Strategy to tackle my current quest: " + quest
	case question != "" && quest != "":
		question = question + "\n(Consider current quest context: " + quest + ")"
	}

	snippets, err := s.memorySnippets(userID)
	if err != nil {
		log.Printf("⚠️ Failed to read memory for %d: %v", userID, err)
	}

	messages := []llm.Message{
		{Role: "system", Content: s.persona.BuildSystemPrompt(snippets, ch)},
		{Role: "user", Content: s.persona.BuildUserPrompt(username, question, quest)},
	}

	text, resp, fromFallback := s.generate(ctx, messages, temp, persona.TagAdvice)

	respID, err := s.store.AddResponse(userID, now, store.KindAdvice, resp.PromptTokens, resp.CompletionTokens, chatID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to record response: %w", err)
	}

	if len(question) > memoryWorthyLen {
		if err := s.store.AppendMemory(userID, now, snippet(question), snippet(text)); err != nil {
			log.Printf("⚠️ Failed to append memory for %d: %v", userID, err)
		}
	}

	return Reply{Text: text, ResponseID: respID, Chaos: ch, Temperature: temp, Fallback: fromFallback}, nil
}

// QuestHook generates a fresh quest hook and makes it the user's active
// quest.
func (s *Service) QuestHook(ctx context.Context, userID int64, username string, chatID int64) (Reply, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	now := s.clock.Now()
	day := s.clock.DayKey(now)

	if err := s.store.UpsertUser(userID, username, now); err != nil {
		return Reply{}, err
	}
	_, today, err := s.store.RecordInteraction(userID, day)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to count interaction: %w", err)
	}
	if err := s.store.IncDailyCounter(day, store.KindQuest); err != nil {
		log.Printf("⚠️ Failed to bump day counter: %v", err)
	}

	ch := chaos.Compute(today, s.ChaosParams())
	temp := chaos.Temperature(s.systemTemperature, ch)

	messages := []llm.Message{
		{Role: "system", Content: s.persona.BuildQuestSystemPrompt(ch)},
		{Role: "user", Content: s.persona.BuildQuestUserPrompt()},
	}

	text, resp, fromFallback := s.generate(ctx, messages, temp, persona.TagQuestHook)
	hook := persona.CleanQuestHook(text)
	if hook == "" {
		hook = persona.Fallback(persona.TagQuestHook)
		fromFallback = true
	}

	if err := s.store.SetActiveQuest(userID, hook, now); err != nil {
		return Reply{}, fmt.Errorf("failed to store quest: %w", err)
	}
	respID, err := s.store.AddResponse(userID, now, store.KindQuest, resp.PromptTokens, resp.CompletionTokens, chatID)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to record response: %w", err)
	}

	return Reply{Text: hook, ResponseID: respID, Chaos: ch, Temperature: temp, Fallback: fromFallback}, nil
}

// AbandonQuest clears the active quest slot; memory history stays.
func (s *Service) AbandonQuest(userID int64) error {
	unlock := s.lockUser(userID)
	defer unlock()
	return s.store.ClearActiveQuest(userID)
}

// RecordVote stores a rating for a previously sent response.
// Re-voting overwrites.
func (s *Service) RecordVote(responseID, userID int64, vote store.Vote) error {
	return s.store.RecordVote(responseID, userID, s.clock.Now(), vote)
}

// UserStats is what /stats shows.
type UserStats struct {
	Responses int
	Tokens    int
	Chaos     float64
}

func (s *Service) Stats(userID int64) (UserStats, error) {
	count, tokens, err := s.store.UserStats(userID)
	if err != nil {
		return UserStats{}, err
	}
	today := 0
	if u, ok, err := s.store.GetUser(userID); err == nil && ok && u.LastResetDay == s.clock.Today() {
		today = u.InteractionsToday
	}
	return UserStats{
		Responses: count,
		Tokens:    tokens,
		Chaos:     chaos.Compute(today, s.ChaosParams()),
	}, nil
}

// generate calls the provider under a bounded timeout; on any provider
// failure it logs and substitutes a canned reply for the tag.
func (s *Service) generate(ctx context.Context, messages []llm.Message, temp float32, tag string) (string, llm.Response, bool) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llm.Generate(tctx, messages, temp)
	if err != nil {
		log.Printf("❌ Provider call failed (%s), using fallback: %v", tag, err)
		return persona.Fallback(tag), llm.Response{}, true
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		log.Printf("❌ Provider returned empty content (%s), using fallback", tag)
		return persona.Fallback(tag), resp, true
	}
	return text, resp, false
}

func (s *Service) questContext(userID int64) (string, bool, error) {
	quest, ok, err := s.store.ActiveQuest(userID)
	if err != nil || !ok {
		return "", false, err
	}
	return persona.CleanQuestHook(quest), true, nil
}

func (s *Service) memorySnippets(userID int64) ([]string, error) {
	pairs, err := s.store.RecentMemory(userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		line := p.Prompt
		if p.Response != "" {
			line += " ⇒ " + p.Response
		}
		out = append(out, line)
	}
	return out, nil
}

// snippet collapses whitespace and truncates to the memory limit.
func snippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) > memorySnippetLimit {
		return string(runes[:memorySnippetLimit])
	}
	return collapsed
}
