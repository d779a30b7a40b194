package emotion

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Label
		ok   bool
	}{
		{"joy", Joy, true},
		{"  Despair ", Despair, true},
		{"ANXIETY", Anxiety, true},
		{"elation", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Parse(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestValenceBounds(t *testing.T) {
	for _, l := range All() {
		v := l.Valence()
		if v < -1 || v > 1 {
			t.Errorf("%s valence %v out of [-1, 1]", l, v)
		}
	}
	if Joy.Valence() <= 0 {
		t.Errorf("expected positive valence for joy, got %v", Joy.Valence())
	}
	if Despair.Valence() != -1.0 {
		t.Errorf("expected despair valence -1.0, got %v", Despair.Valence())
	}
}

func TestRiskMarkers(t *testing.T) {
	if !Despair.IsCrisisIndicator() {
		t.Error("despair should be a crisis indicator")
	}
	if Depression.IsCrisisIndicator() {
		t.Error("depression alone is not a crisis indicator")
	}
	if !Despair.HighRisk() || !Depression.HighRisk() {
		t.Error("despair and depression are high-risk labels")
	}
	if Sadness.HighRisk() {
		t.Error("sadness is not a high-risk label")
	}
}
