package classifier

import (
	"strings"

	"github.com/mehakx/oranew/internal/emotion"
)

// crisisKeywords are direct self-harm indicators. Detection is local and
// deterministic, so it stays trustworthy when the remote classifier is down.
var crisisKeywords = []string{
	"suicide", "kill myself", "end it all", "want to die", "hurt myself",
	"self harm", "cutting", "overdose", "jump off", "not worth living",
	"better off dead", "can't go on",
}

// crisisPhrases are softer hopelessness signals that count toward the score
// but never trigger on their own with full confidence.
var crisisPhrases = []string{"can't take it", "no point", "give up"}

var keywordBuckets = map[emotion.Label][]string{
	emotion.Sadness: {"sad", "depressed", "down", "crying", "tears", "lonely", "miserable"},
	emotion.Anger:   {"angry", "mad", "furious", "annoyed", "frustrated", "hate"},
	emotion.Anxiety: {"anxious", "worried", "nervous", "panic", "on edge"},
	emotion.Fear:    {"scared", "afraid", "terrified", "frightened"},
	emotion.Joy:     {"happy", "joy", "excited", "great", "wonderful", "grateful"},
	emotion.Stress:  {"stressed", "overwhelmed", "pressure", "burden", "exhausted"},
}

// FallbackClassify labels text with keyword matching when the remote
// classifier is unavailable. Crisis-indicator hits keep a usable confidence
// so direct escalation still works offline; ordinary emotions come back
// below the usable threshold and the engine carries the previous risk level.
func FallbackClassify(text string) Classification {
	lower := strings.ToLower(text)

	hits := 0
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	for _, ph := range crisisPhrases {
		if strings.Contains(lower, ph) {
			hits++
		}
	}
	switch {
	case hits >= 2:
		return Classification{Label: emotion.Despair, Confidence: 0.9}
	case hits == 1:
		return Classification{Label: emotion.Despair, Confidence: 0.6}
	}

	for _, label := range []emotion.Label{
		emotion.Sadness, emotion.Anger, emotion.Anxiety, emotion.Fear, emotion.Joy, emotion.Stress,
	} {
		for _, kw := range keywordBuckets[label] {
			if strings.Contains(lower, kw) {
				return Classification{Label: label, Confidence: 0.2}
			}
		}
	}
	return Classification{Label: emotion.Neutral, Confidence: 0.2}
}
