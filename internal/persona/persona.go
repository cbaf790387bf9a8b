package persona

import (
	"encoding/json"
	"fmt"
	"os"
)

// Persona is the static character template the bot speaks through.
type Persona struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Voice       struct {
		Tone   string `json:"tone"`
		Rating string `json:"rating"`
	} `json:"voice"`
	StyleRules      []string `json:"style_rules"`
	AdviceStructure []string `json:"advice_structure"`
}

func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file %s: %w", path, err)
	}
	var p Persona
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("persona file %s has no name", path)
	}
	return &p, nil
}
