package models

import (
	"fmt"
	"strings"
)

// StatBlock holds the six base stats of a creature. Values are nominally
// 0-255 but are kept exactly as the remote service returned them.
type StatBlock struct {
	HP             int `json:"hp" yaml:"hp"`
	Attack         int `json:"attack" yaml:"attack"`
	Defense        int `json:"defense" yaml:"defense"`
	SpecialAttack  int `json:"spAtk" yaml:"spAtk"`
	SpecialDefense int `json:"spDef" yaml:"spDef"`
	Speed          int `json:"speed" yaml:"speed"`
}

// AnalysisRecord is the creature profile produced by one analysis
type AnalysisRecord struct {
	SpeciesName string    `json:"speciesName" yaml:"speciesName"`
	Types       []string  `json:"types" yaml:"types"`
	Stats       StatBlock `json:"stats" yaml:"stats"`
	Moves       []string  `json:"moves" yaml:"moves"`
	Description string    `json:"description" yaml:"description"`
}

// Clone returns a deep copy so callers never share slices with the session.
func (r AnalysisRecord) Clone() AnalysisRecord {
	out := r
	out.Types = append([]string(nil), r.Types...)
	out.Moves = append([]string(nil), r.Moves...)
	return out
}

// SavedEntry is an AnalysisRecord persisted in the catalog.
type SavedEntry struct {
	AnalysisRecord `yaml:",inline"`

	ID          string `json:"id" yaml:"id"`
	Timestamp   int64  `json:"timestamp" yaml:"timestamp"` // Unix milliseconds
	ImageBase64 string `json:"imageBase64" yaml:"imageBase64,omitempty"`
}

// Matches reports whether query is a substring of the species name, any
// type, or the description. An empty query matches everything.
func (e SavedEntry) Matches(query string) bool {
	if query == "" {
		return true
	}
	if strings.Contains(e.SpeciesName, query) || strings.Contains(e.Description, query) {
		return true
	}
	for _, t := range e.Types {
		if strings.Contains(t, query) {
			return true
		}
	}
	return false
}

// Tone selects the register of the analysis prompt.
type Tone string

const (
	ToneFaithful Tone = "faithful"
	ToneNormal   Tone = "normal"
	ToneSpicy    Tone = "spicy"
)

// DefaultTone is the tone every new session starts with.
const DefaultTone = ToneSpicy

// ParseTone converts user input into a Tone. Empty input yields DefaultTone.
func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return DefaultTone, nil
	case ToneFaithful, ToneNormal, ToneSpicy:
		return t, nil
	default:
		return "", fmt.Errorf("invalid tone %q. Must be 'faithful', 'normal', or 'spicy'", s)
	}
}

// Valid reports whether t is one of the three known tones.
func (t Tone) Valid() bool {
	return t == ToneFaithful || t == ToneNormal || t == ToneSpicy
}

// Next returns the following tone in the faithful -> normal -> spicy cycle.
func (t Tone) Next() Tone {
	switch t {
	case ToneFaithful:
		return ToneNormal
	case ToneNormal:
		return ToneSpicy
	default:
		return ToneFaithful
	}
}
