package protocol

import (
	"github.com/mehakx/oranew/internal/emotion"
	"github.com/mehakx/oranew/internal/risk"
)

// Kind tags the variant of a protocol choice.
type Kind string

const (
	KindCrisis   Kind = "crisis"
	KindExercise Kind = "exercise"
	KindCheckin  Kind = "checkin"
)

// Choice is the selected intervention. Exactly the id fields matching Kind
// are populated.
type Choice struct {
	Kind       Kind     `json:"kind"`
	ResourceID string   `json:"resource_id,omitempty"`
	ExerciseID string   `json:"exercise_id,omitempty"`
	Category   Category `json:"category,omitempty"`
	PromptID   string   `json:"prompt_id,omitempty"`
}

// Selector picks one intervention per turn. Selection is pure: identical
// inputs always yield the identical choice.
type Selector struct {
	catalog       *Catalog
	region        string
	noveltyWindow int
}

func NewSelector(catalog *Catalog, region string, noveltyWindow int) *Selector {
	if noveltyWindow <= 0 {
		noveltyWindow = 5
	}
	return &Selector{catalog: catalog, region: region, noveltyWindow: noveltyWindow}
}

// Select maps a risk level, the dominant recent emotion and the user's recent
// exercise ids onto a protocol choice. High risk always selects the crisis
// resource, overriding personalization.
func (s *Selector) Select(level risk.Level, dominant emotion.Label, recentExerciseIDs []string) Choice {
	if level == risk.LevelHigh {
		return Choice{Kind: KindCrisis, ResourceID: s.catalog.Resource(s.region).ID}
	}
	if level == risk.LevelNone {
		return s.checkin(recentExerciseIDs)
	}

	cats := s.catalog.EligibleCategories(dominant)
	if len(cats) == 0 {
		return s.checkin(recentExerciseIDs)
	}

	recent := make(map[string]bool, s.noveltyWindow)
	ids := recentExerciseIDs
	if len(ids) > s.noveltyWindow {
		ids = ids[len(ids)-s.noveltyWindow:]
	}
	for _, id := range ids {
		recent[id] = true
	}

	// First eligible exercise not used recently, in catalog order.
	for _, cat := range cats {
		for _, ex := range s.catalog.Exercises(cat) {
			if !recent[ex.ID] {
				return Choice{Kind: KindExercise, ExerciseID: ex.ID, Category: ex.Category}
			}
		}
	}

	// Everything eligible was used recently; repeat the preferred one.
	ex := s.catalog.Exercises(cats[0])[0]
	return Choice{Kind: KindExercise, ExerciseID: ex.ID, Category: ex.Category}
}

func (s *Selector) checkin(recentExerciseIDs []string) Choice {
	prompts := s.catalog.checkins
	idx := len(recentExerciseIDs) % len(prompts)
	return Choice{Kind: KindCheckin, PromptID: prompts[idx]}
}
