// Package protocol selects the therapeutic intervention for an assessed turn:
// a crisis resource at high risk, otherwise an exercise matched to the
// dominant recent emotion, otherwise a check-in prompt.
package protocol

import "github.com/mehakx/oranew/internal/emotion"

// Category is the closed set of exercise categories.
type Category string

const (
	CategoryBreathing   Category = "breathing"
	CategoryGrounding   Category = "grounding"
	CategoryCognitive   Category = "cognitive"
	CategoryBehavioral  Category = "behavioral"
	CategoryGratitude   Category = "gratitude"
	CategoryMindfulness Category = "mindfulness"
	CategoryRelaxation  Category = "relaxation"
	CategoryPlanning    Category = "planning"
)

// Exercise is one entry in the intervention catalog.
type Exercise struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Summary  string   `json:"summary"`
}

// CrisisResource holds region-specific crisis contacts, supplied by
// configuration rather than computed.
type CrisisResource struct {
	ID       string `json:"id"`
	Region   string `json:"region"`
	Hotline  string `json:"hotline"`
	TextLine string `json:"text_line"`
	Chat     string `json:"chat"`
}

// Catalog is the static mapping from emotions to eligible exercises plus the
// crisis resource table.
type Catalog struct {
	byEmotion map[emotion.Label][]Category
	exercises map[Category][]Exercise
	resources map[string]CrisisResource
	checkins  []string
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		byEmotion: map[emotion.Label][]Category{
			emotion.Anxiety:    {CategoryBreathing, CategoryGrounding, CategoryCognitive},
			emotion.Fear:       {CategoryGrounding, CategoryBreathing},
			emotion.Sadness:    {CategoryBehavioral, CategoryGratitude, CategoryMindfulness},
			emotion.Depression: {CategoryBehavioral, CategoryGratitude, CategoryMindfulness},
			emotion.Despair:    {CategoryGrounding, CategoryMindfulness},
			emotion.Stress:     {CategoryRelaxation, CategoryPlanning, CategoryMindfulness},
			emotion.Anger:      {CategoryGrounding, CategoryRelaxation},
		},
		exercises: map[Category][]Exercise{
			CategoryBreathing: {
				{ID: "breathing_478", Category: CategoryBreathing, Summary: "4-7-8 breathing: inhale 4, hold 7, exhale 8, repeat 3-4 times."},
				{ID: "breathing_box", Category: CategoryBreathing, Summary: "Box breathing: 4 counts in, hold, out, hold."},
			},
			CategoryGrounding: {
				{ID: "grounding_54321", Category: CategoryGrounding, Summary: "5-4-3-2-1: name 5 things you see, 4 you can touch, 3 you hear, 2 you smell, 1 you taste."},
				{ID: "grounding_object", Category: CategoryGrounding, Summary: "Hold one object and describe its texture, weight and temperature."},
			},
			CategoryCognitive: {
				{ID: "cognitive_challenge", Category: CategoryCognitive, Summary: "Challenge the anxious thought: what evidence supports or contradicts it?"},
			},
			CategoryBehavioral: {
				{ID: "behavioral_activation", Category: CategoryBehavioral, Summary: "Choose one small, enjoyable activity to do today."},
			},
			CategoryGratitude: {
				{ID: "gratitude_journal", Category: CategoryGratitude, Summary: "Write down 3 things you're grateful for, no matter how small."},
			},
			CategoryMindfulness: {
				{ID: "mindfulness_bodyscan", Category: CategoryMindfulness, Summary: "5-minute body scan meditation to reconnect with the present moment."},
				{ID: "mindfulness_breaths", Category: CategoryMindfulness, Summary: "Take 3 mindful breaths, focusing only on the sensation of breathing."},
			},
			CategoryRelaxation: {
				{ID: "relaxation_pmr", Category: CategoryRelaxation, Summary: "Progressive muscle relaxation: tense and release each muscle group for 5 seconds."},
			},
			CategoryPlanning: {
				{ID: "planning_breakdown", Category: CategoryPlanning, Summary: "Break one overwhelming task into smaller, manageable steps."},
			},
		},
		resources: map[string]CrisisResource{
			"US": {ID: "us_988", Region: "US", Hotline: "988 (Suicide & Crisis Lifeline)", TextLine: "Text HOME to 741741", Chat: "988lifeline.org"},
			"UK": {ID: "uk_samaritans", Region: "UK", Hotline: "116 123 (Samaritans)", TextLine: "Text SHOUT to 85258", Chat: "samaritans.org"},
			"CA": {ID: "ca_talk_suicide", Region: "CA", Hotline: "1-833-456-4566 (Talk Suicide Canada)", TextLine: "Text 45645", Chat: "talksuicide.ca"},
		},
		checkins: []string{"checkin_mood", "checkin_day", "checkin_sleep", "checkin_goals"},
	}
}

// EligibleCategories returns the exercise categories appropriate for an
// emotion, in preference order. Emotions without a mapping get none.
func (c *Catalog) EligibleCategories(l emotion.Label) []Category {
	return c.byEmotion[l]
}

// Exercises returns the catalog entries for a category, in catalog order.
func (c *Catalog) Exercises(cat Category) []Exercise {
	return c.exercises[cat]
}

// Resource returns the crisis resource for a region, falling back to US.
func (c *Catalog) Resource(region string) CrisisResource {
	if r, ok := c.resources[region]; ok {
		return r
	}
	return c.resources["US"]
}
