package gemini

import (
	"errors"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/humandex/internal/models"
)

const validAnalysis = `{
  "speciesName": "Caffeine Addict",
  "types": ["Normal", "Poison"],
  "stats": {"hp": 60, "attack": 45, "defense": 30, "spAtk": 90, "spDef": 40, "speed": 300},
  "moves": ["Polite Smile", "Shift Blame", "Stress Eating", "Refill"],
  "description": "Hovers near the coffee machine."
}`

func TestParseAnalysisValid(t *testing.T) {
	record, err := parseAnalysis(validAnalysis)
	if err != nil {
		t.Fatalf("Expected valid analysis, got %v", err)
	}

	if record.SpeciesName != "Caffeine Addict" {
		t.Errorf("Unexpected species name: %s", record.SpeciesName)
	}
	expected := models.StatBlock{HP: 60, Attack: 45, Defense: 30, SpecialAttack: 90, SpecialDefense: 40, Speed: 300}
	if record.Stats != expected {
		t.Errorf("Expected stats %+v, got %+v", expected, record.Stats)
	}
	if len(record.Moves) != 4 || record.Moves[3] != "Refill" {
		t.Errorf("Unexpected moves: %v", record.Moves)
	}
}

func TestParseAnalysisCodeFence(t *testing.T) {
	if _, err := parseAnalysis("```json\n" + validAnalysis + "\n```"); err != nil {
		t.Errorf("Expected fenced JSON to parse, got %v", err)
	}
}

func TestParseAnalysisEmptyDescriptionAllowed(t *testing.T) {
	text := strings.Replace(validAnalysis, "Hovers near the coffee machine.", "", 1)
	record, err := parseAnalysis(text)
	if err != nil {
		t.Fatalf("Expected empty description to be accepted, got %v", err)
	}
	if record.Description != "" {
		t.Errorf("Expected empty description, got %q", record.Description)
	}
}

func TestParseAnalysisMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "The person looks tired."},
		{"empty object", "{}"},
		{"missing description", `{"speciesName":"A","types":["Normal"],"stats":{"hp":1,"attack":1,"defense":1,"spAtk":1,"spDef":1,"speed":1},"moves":["a","b","c","d"]}`},
		{"missing stat", `{"speciesName":"A","types":["Normal"],"stats":{"hp":1,"attack":1,"defense":1,"spAtk":1,"spDef":1},"moves":["a","b","c","d"],"description":"x"}`},
		{"empty types", strings.Replace(validAnalysis, `["Normal", "Poison"]`, `[]`, 1)},
		{"three moves", strings.Replace(validAnalysis, `, "Refill"`, ``, 1)},
		{"five moves", strings.Replace(validAnalysis, `"Refill"`, `"Refill", "Nap"`, 1)},
		{"unknown field", strings.Replace(validAnalysis, `"speciesName"`, `"level": 5, "speciesName"`, 1)},
		{"string stat", strings.Replace(validAnalysis, `"hp": 60`, `"hp": "60"`, 1)},
		{"fractional stat", strings.Replace(validAnalysis, `"hp": 60`, `"hp": 60.5`, 1)},
		{"trailing object", validAnalysis + `{}`},
		{"array", `[` + validAnalysis + `]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnalysis(tt.text)
			if !errors.Is(err, ErrAnalysisMalformed) {
				t.Errorf("Expected ErrAnalysisMalformed, got %v", err)
			}
		})
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	tests := []struct {
		tone     models.Tone
		contains string
	}{
		{models.ToneFaithful, "18 canonical types"},
		{models.ToneNormal, "standard creature encyclopedia"},
		{models.ToneSpicy, "sarcastic"},
		{models.Tone("unknown"), "sarcastic"},
	}

	for _, tt := range tests {
		t.Run(string(tt.tone), func(t *testing.T) {
			prompt := buildAnalysisPrompt(tt.tone)
			if !strings.Contains(prompt, tt.contains) {
				t.Errorf("Expected prompt for %s to contain %q", tt.tone, tt.contains)
			}
			for _, field := range []string{"speciesName", "types", "stats", "moves", "description"} {
				if !strings.Contains(prompt, field) {
					t.Errorf("Expected prompt to mention %s", field)
				}
			}
		})
	}
}

func TestBuildVoicePrompt(t *testing.T) {
	prompt := buildVoicePrompt("Hovers near the coffee machine.")
	if !strings.HasSuffix(prompt, "\"Hovers near the coffee machine.\"") {
		t.Errorf("Expected quoted text at end of prompt, got %q", prompt)
	}
}
