package emotion

import "strings"

// Label is one of the closed set of emotion categories the classifier may
// assign to an utterance.
type Label string

const (
	Neutral    Label = "neutral"
	Joy        Label = "joy"
	Sadness    Label = "sadness"
	Anger      Label = "anger"
	Fear       Label = "fear"
	Anxiety    Label = "anxiety"
	Stress     Label = "stress"
	Depression Label = "depression"
	Despair    Label = "despair"
)

// All returns every valid label, in a stable order.
func All() []Label {
	return []Label{Neutral, Joy, Sadness, Anger, Fear, Anxiety, Stress, Depression, Despair}
}

// Parse maps raw classifier output onto a known label. Input is trimmed and
// lowercased first since model output is not reliably canonical.
func Parse(raw string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(raw)))
	switch l {
	case Neutral, Joy, Sadness, Anger, Fear, Anxiety, Stress, Depression, Despair:
		return l, true
	}
	return "", false
}

// valences maps each label to the -1..+1 scale used for trend computation.
var valences = map[Label]float64{
	Joy:        0.8,
	Neutral:    0,
	Stress:     -0.3,
	Anxiety:    -0.4,
	Anger:      -0.4,
	Fear:       -0.5,
	Sadness:    -0.6,
	Depression: -0.8,
	Despair:    -1.0,
}

// Valence returns the numeric valence for the label. Unknown labels score 0.
func (l Label) Valence() float64 {
	return valences[l]
}

// IsCrisisIndicator reports whether the label belongs to the crisis-indicator
// category (self-harm ideation). Only these labels can trigger direct
// escalation to high risk.
func (l Label) IsCrisisIndicator() bool {
	return l == Despair
}

// HighRisk reports whether the label contributes to the history frequency
// term of the risk score.
func (l Label) HighRisk() bool {
	return l == Despair || l == Depression
}
