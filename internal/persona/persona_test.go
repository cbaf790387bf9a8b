package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testPersona() *Persona {
	p := &Persona{
		Name:            "Dungeon Oracle",
		Description:     "a snarky dungeon master.",
		StyleRules:      []string{"stay in character", "be useful"},
		AdviceStructure: []string{"verdict first", "steps second"},
	}
	p.Voice.Tone = "dry"
	p.Voice.Rating = "PG-13"
	return p
}

func TestLoadPersona(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.json")
	data := `{"name":"Dungeon Oracle","description":"d","voice":{"tone":"dry","rating":"PG-13"},"style_rules":["r1"],"advice_structure":["a1"]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name != "Dungeon Oracle" || p.Voice.Tone != "dry" || len(p.StyleRules) != 1 {
		t.Fatalf("persona parsed wrong: %+v", p)
	}
}

func TestLoadPersonaRejectsNameless(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.json")
	if err := os.WriteFile(path, []byte(`{"description":"no name"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for persona without a name")
	}
}

func TestBuildSystemPromptOrdersMemoriesNewestLast(t *testing.T) {
	p := testPersona()
	out := p.BuildSystemPrompt([]string{"old note", "fresh note"}, 0.85)

	if !strings.Contains(out, "Chaos Meter: 0.85") {
		t.Fatalf("chaos meter missing:\n%s", out)
	}
	if !strings.Contains(out, "- stay in character\n- be useful") {
		t.Fatalf("style rules missing:\n%s", out)
	}
	oldIdx := strings.Index(out, "old note")
	freshIdx := strings.Index(out, "fresh note")
	if oldIdx < 0 || freshIdx < 0 || oldIdx > freshIdx {
		t.Fatalf("memories not newest-last (old=%d fresh=%d):\n%s", oldIdx, freshIdx, out)
	}
}

func TestBuildSystemPromptNoMemories(t *testing.T) {
	out := testPersona().BuildSystemPrompt(nil, 0.5)
	if !strings.Contains(out, "None recorded.") {
		t.Fatalf("empty-memory placeholder missing:\n%s", out)
	}
}

func TestBuildUserPromptQuestLine(t *testing.T) {
	p := testPersona()
	withQuest := p.BuildUserPrompt("grog", "what now?", "Steal the bell")
	if !strings.Contains(withQuest, "Related active quest: Steal the bell") {
		t.Fatalf("quest line missing:\n%s", withQuest)
	}
	without := p.BuildUserPrompt("grog", "what now?", "")
	if strings.Contains(without, "Related active quest") {
		t.Fatalf("quest line present without a quest:\n%s", without)
	}
}

func TestCleanQuestHook(t *testing.T) {
	raw := "Seek   the drowned\nlibrary.\n🏆 ACHIEVEMENT UNLOCKED: Bookworm\nSome flavor.\nReward: 10 gp\n"
	got := CleanQuestHook(raw)
	if strings.Contains(got, "ACHIEVEMENT") || strings.Contains(got, "Reward") {
		t.Fatalf("achievement box not stripped: %q", got)
	}
	if got != "Seek the drowned library." {
		t.Fatalf("whitespace not collapsed: %q", got)
	}
}

func TestFallbackTags(t *testing.T) {
	for _, tag := range []string{TagQuestHook, TagAdvice} {
		if Fallback(tag) == "" {
			t.Fatalf("no canned reply for tag %q", tag)
		}
	}
	if Fallback("no-such-tag") != "" {
		t.Fatalf("unknown tag should yield empty string")
	}
}
