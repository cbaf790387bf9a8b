package persona

import (
	"fmt"
	"regexp"
	"strings"
)

// achievementBoxRe matches the decorated achievement blocks the model
// likes to emit; they must never leak into stored quest hooks.
var achievementBoxRe = regexp.MustCompile(`(?i)🏆\s*ACHIEVEMENT UNLOCKED:[\s\S]*?(?:Reward:[^\n]*)(?:\n|$)`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// CleanQuestHook strips achievement boxes and collapses whitespace so a
// hook can be stored and replayed as a single line.
func CleanQuestHook(raw string) string {
	cleaned := achievementBoxRe.ReplaceAllString(raw, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

func chaosNote(chaos float64) string {
	return fmt.Sprintf(
		"Chaos Meter: %.2f (0=stoic, 1.0=spicy, 1.5=unhinged-but-safe). "+
			"As chaos rises, increase theatrical narration, absurd tangents, and sarcastic flair — but keep advice concrete and refusals safe.",
		chaos,
	)
}

// BuildSystemPrompt merges the persona template, the user's recent
// memory snippets (newest-last, the order the model should weight them
// in) and the chaos meter into the system message.
func (p *Persona) BuildSystemPrompt(memories []string, chaos float64) string {
	mem := "None recorded."
	if len(memories) > 0 {
		var b strings.Builder
		for i, m := range memories {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- " + m)
		}
		mem = b.String()
	}
	return fmt.Sprintf(
		"You are %s — %s\nVoice: %s (rating: %s).\n%s\n\nStyle rules:\n- %s\n\nIf giving advice, follow this structure:\n- %s\n\nRecent party memories (short notes for callbacks):\n%s",
		p.Name, p.Description,
		p.Voice.Tone, p.Voice.Rating,
		chaosNote(chaos),
		strings.Join(p.StyleRules, "\n- "),
		strings.Join(p.AdviceStructure, "\n- "),
		mem,
	)
}

// BuildUserPrompt frames the adventurer's question, folding in the
// active quest when one is set.
func (p *Persona) BuildUserPrompt(username, question, activeQuest string) string {
	questLine := ""
	if activeQuest != "" {
		questLine = "\nRelated active quest: " + activeQuest
	}
	return fmt.Sprintf(
		"Adventurer @%s asks:\n\"%s\"%s\n\nRespond as %s, in-character. Include an ACHIEVEMENT box if this constitutes a meaningful action.",
		username, question, questLine, p.Name,
	)
}

// BuildQuestSystemPrompt is the system message for one-shot quest-hook
// generation.
func (p *Persona) BuildQuestSystemPrompt(chaos float64) string {
	note := fmt.Sprintf(
		"Quest hook request. Chaos meter %.2f (0=restrained, 1=spicy, 1.5=absurd). "+
			"Higher chaos should lean into weirder stakes, uncanny details, or surreal NPC motives.",
		chaos,
	)
	return fmt.Sprintf(
		"You are %s — %s\nVoice: %s.\n%s\n\nTask: Craft one NEW quest hook for an adventuring party.\n"+
			"- 1–2 sentences, vivid, immediately playable.\n"+
			"- No ACHIEVEMENT boxes, no bullet points, no meta commentary.\n"+
			"- Avoid repeating recent hook themes; steer clear of egg/breakfast motifs unless explicitly requested.\n"+
			"- Output ONLY the quest hook text.",
		p.Name, p.Description, p.Voice.Tone, note,
	)
}

// BuildQuestUserPrompt is the fixed user message paired with
// BuildQuestSystemPrompt.
func (p *Persona) BuildQuestUserPrompt() string {
	return "Deliver a brand-new quest hook that hints at a conflict, an unusual locale or relic, and a quirky constraint or twist. " +
		"Make it feel like the start of an epic side quest. Stay under 50 words."
}
