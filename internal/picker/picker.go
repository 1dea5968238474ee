// Package picker chooses practice subjects.
package picker

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/vistrain/internal/model"
)

// Picker selects subjects at random.
type Picker struct {
	rnd *rand.Rand
}

// New returns a Picker seeded with the current time.
func New() *Picker {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Picker.
func NewWithSeed(seed int64) *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(seed))}
}

// Pick selects a subject uniformly. It returns "" for an empty list.
func (p *Picker) Pick(subjects []model.Subject) model.Subject {
	if len(subjects) == 0 {
		return ""
	}
	return subjects[p.rnd.Intn(len(subjects))]
}

// PickWeighted selects a subject with a bias toward the least practiced ones.
// Each subject weighs 1 + factor*(maxTotalMinutes - its totalMinutes).
func (p *Picker) PickWeighted(subjects []model.Subject, records map[model.Subject]model.StatsRecord, factor float64) model.Subject {
	if len(subjects) == 0 {
		return ""
	}
	if factor <= 0 {
		return p.Pick(subjects)
	}
	weights := Weights(subjects, records, factor)
	total := 0.0
	for _, w := range weights {
		total += w
	}

	r := p.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return subjects[i]
		}
	}
	return subjects[len(subjects)-1]
}

// Weights returns the selection weight of each subject.
func Weights(subjects []model.Subject, records map[model.Subject]model.StatsRecord, factor float64) []float64 {
	maxMinutes := 0
	for _, s := range subjects {
		if m := records[s].TotalMinutes; m > maxMinutes {
			maxMinutes = m
		}
	}
	weights := make([]float64, len(subjects))
	for i, s := range subjects {
		deficit := maxMinutes - records[s].TotalMinutes
		weights[i] = 1.0 + float64(deficit)*factor
	}
	return weights
}
