package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/humandex/internal/models"
)

// MoveCount is the number of moves every record must carry.
const MoveCount = 4

// analysisSchema constrains the model output to the AnalysisRecord shape.
var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"speciesName": {Type: genai.TypeString},
		"types": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"stats": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"hp":      {Type: genai.TypeInteger},
				"attack":  {Type: genai.TypeInteger},
				"defense": {Type: genai.TypeInteger},
				"spAtk":   {Type: genai.TypeInteger},
				"spDef":   {Type: genai.TypeInteger},
				"speed":   {Type: genai.TypeInteger},
			},
			Required: []string{"hp", "attack", "defense", "spAtk", "spDef", "speed"},
		},
		"moves": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"description": {Type: genai.TypeString},
	},
	Required: []string{"speciesName", "types", "stats", "moves", "description"},
}

// wire types use pointers so a missing field can be told apart from a zero value
type analysisPayload struct {
	SpeciesName *string       `json:"speciesName"`
	Types       []string      `json:"types"`
	Stats       *statsPayload `json:"stats"`
	Moves       []string      `json:"moves"`
	Description *string       `json:"description"`
}

type statsPayload struct {
	HP             *int `json:"hp"`
	Attack         *int `json:"attack"`
	Defense        *int `json:"defense"`
	SpecialAttack  *int `json:"spAtk"`
	SpecialDefense *int `json:"spDef"`
	Speed          *int `json:"speed"`
}

// parseAnalysis strictly decodes the model's JSON text. Anything that is not
// exactly one AnalysisRecord object fails with ErrAnalysisMalformed.
func parseAnalysis(text string) (*models.AnalysisRecord, error) {
	text = trimCodeFence(text)

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()

	var p analysisPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisMalformed, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrAnalysisMalformed)
	}

	var missing []string
	if p.SpeciesName == nil {
		missing = append(missing, "speciesName")
	}
	if p.Types == nil {
		missing = append(missing, "types")
	}
	if p.Moves == nil {
		missing = append(missing, "moves")
	}
	if p.Description == nil {
		missing = append(missing, "description")
	}
	if p.Stats == nil {
		missing = append(missing, "stats")
	} else {
		for _, f := range []struct {
			name  string
			value *int
		}{
			{"stats.hp", p.Stats.HP},
			{"stats.attack", p.Stats.Attack},
			{"stats.defense", p.Stats.Defense},
			{"stats.spAtk", p.Stats.SpecialAttack},
			{"stats.spDef", p.Stats.SpecialDefense},
			{"stats.speed", p.Stats.Speed},
		} {
			if f.value == nil {
				missing = append(missing, f.name)
			}
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrAnalysisMalformed, strings.Join(missing, ", "))
	}

	if len(p.Types) == 0 {
		return nil, fmt.Errorf("%w: types must not be empty", ErrAnalysisMalformed)
	}
	if len(p.Moves) != MoveCount {
		return nil, fmt.Errorf("%w: expected %d moves, got %d", ErrAnalysisMalformed, MoveCount, len(p.Moves))
	}

	return &models.AnalysisRecord{
		SpeciesName: *p.SpeciesName,
		Types:       p.Types,
		Stats: models.StatBlock{
			HP:             *p.Stats.HP,
			Attack:         *p.Stats.Attack,
			Defense:        *p.Stats.Defense,
			SpecialAttack:  *p.Stats.SpecialAttack,
			SpecialDefense: *p.Stats.SpecialDefense,
			Speed:          *p.Stats.Speed,
		},
		Moves:       p.Moves,
		Description: *p.Description,
	}, nil
}

// trimCodeFence removes a markdown code block some models wrap JSON in.
func trimCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
