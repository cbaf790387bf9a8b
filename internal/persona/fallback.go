package persona

import "math/rand"

// Canned replies used when the provider call fails or times out, keyed
// by context tag. The user still gets something playable.
const (
	TagQuestHook = "quest-hook"
	TagAdvice    = "advice"
)

var fallbacks = map[string][]string{
	TagQuestHook: {
		"A suspicious merchant offers a map to a sunken archive guarded by silent bells.",
		"Each dawn, footprints circle every door—yet no watcher sees the walker.",
		"A cursed ledger predicts debts that come due in blood by the next full moon.",
	},
	TagAdvice: {
		"The Oracle's crystal is fogged. Act on your second-best idea; it was probably your best one anyway.",
		"The spirits are silent. When in doubt: scout first, split the loot later, never lick the altar.",
		"My sight fails me, adventurer. Sharpen your blade, sleep on it, and ask again at dawn.",
	},
}

// Fallback returns one canned reply for the tag, or the empty string if
// the tag is unknown.
func Fallback(tag string) string {
	opts := fallbacks[tag]
	if len(opts) == 0 {
		return ""
	}
	return opts[rand.Intn(len(opts))]
}
