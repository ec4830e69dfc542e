package catalog

import (
	"sort"

	"github.com/lehigh-university-libraries/humandex/internal/models"
)

// Summary aggregates a set of entries for the stats command
type Summary struct {
	TotalEntries int            `yaml:"total_entries" json:"totalEntries"`
	TypeCounts   []TypeCount    `yaml:"type_counts" json:"typeCounts"`
	AverageStats AverageStats   `yaml:"average_stats" json:"averageStats"`
	Strongest    *EntryHeadline `yaml:"strongest,omitempty" json:"strongest,omitempty"`
	Newest       *EntryHeadline `yaml:"newest,omitempty" json:"newest,omitempty"`
}

// TypeCount is how many entries carry a type.
type TypeCount struct {
	Type  string `yaml:"type" json:"type"`
	Count int    `yaml:"count" json:"count"`
}

// AverageStats holds the mean of each stat across entries.
type AverageStats struct {
	HP             float64 `yaml:"hp" json:"hp"`
	Attack         float64 `yaml:"attack" json:"attack"`
	Defense        float64 `yaml:"defense" json:"defense"`
	SpecialAttack  float64 `yaml:"sp_atk" json:"spAtk"`
	SpecialDefense float64 `yaml:"sp_def" json:"spDef"`
	Speed          float64 `yaml:"speed" json:"speed"`
}

// EntryHeadline identifies one entry in a summary.
type EntryHeadline struct {
	ID          string `yaml:"id" json:"id"`
	SpeciesName string `yaml:"species_name" json:"speciesName"`
	Total       int    `yaml:"base_stat_total,omitempty" json:"baseStatTotal,omitempty"`
}

// BaseStatTotal sums the six stats.
func BaseStatTotal(s models.StatBlock) int {
	return s.HP + s.Attack + s.Defense + s.SpecialAttack + s.SpecialDefense + s.Speed
}

// Summarize aggregates entries. Entries are expected newest first, as GetAll
// returns them. Types are counted once per entry.
func Summarize(entries []models.SavedEntry) Summary {
	summary := Summary{TotalEntries: len(entries), TypeCounts: []TypeCount{}}
	if len(entries) == 0 {
		return summary
	}

	counts := make(map[string]int)
	var sum AverageStats
	for i, e := range entries {
		seen := make(map[string]bool, len(e.Types))
		for _, t := range e.Types {
			if seen[t] {
				continue
			}
			seen[t] = true
			counts[t]++
		}

		sum.HP += float64(e.Stats.HP)
		sum.Attack += float64(e.Stats.Attack)
		sum.Defense += float64(e.Stats.Defense)
		sum.SpecialAttack += float64(e.Stats.SpecialAttack)
		sum.SpecialDefense += float64(e.Stats.SpecialDefense)
		sum.Speed += float64(e.Stats.Speed)

		total := BaseStatTotal(e.Stats)
		if summary.Strongest == nil || total > summary.Strongest.Total {
			summary.Strongest = &EntryHeadline{ID: e.ID, SpeciesName: e.SpeciesName, Total: total}
		}
		if i == 0 {
			summary.Newest = &EntryHeadline{ID: e.ID, SpeciesName: e.SpeciesName}
		}
	}

	n := float64(len(entries))
	summary.AverageStats = AverageStats{
		HP:             sum.HP / n,
		Attack:         sum.Attack / n,
		Defense:        sum.Defense / n,
		SpecialAttack:  sum.SpecialAttack / n,
		SpecialDefense: sum.SpecialDefense / n,
		Speed:          sum.Speed / n,
	}

	for t, c := range counts {
		summary.TypeCounts = append(summary.TypeCounts, TypeCount{Type: t, Count: c})
	}
	sort.Slice(summary.TypeCounts, func(i, j int) bool {
		if summary.TypeCounts[i].Count != summary.TypeCounts[j].Count {
			return summary.TypeCounts[i].Count > summary.TypeCounts[j].Count
		}
		return summary.TypeCounts[i].Type < summary.TypeCounts[j].Type
	})

	return summary
}
