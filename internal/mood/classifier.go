// Package mood derives the character's expression from the reply text and keeps it on screen for a
// limited time.
package mood

import (
	"strings"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
)

type rule struct {
	mood     models.Mood
	keywords []string
}

// Order matters: a reply can contain keywords of several moods and the first matching rule wins.
var rules = []rule{
	{mood: models.MoodAngry, keywords: []string{"angry", "hate", "monday"}},
	{mood: models.MoodThinking, keywords: []string{"think", "maybe", "hmm"}},
	{mood: models.MoodStanding, keywords: []string{"best", "seriously"}},
	{mood: models.MoodFunny, keywords: []string{"haha", "lol", "funny", "joke", "laugh"}},
}

// Classify maps text to a mood. Matching is a case-insensitive substring test, so "Mondays" and
// "thinking" match too. Text without any keyword, including the empty string, yields MoodDefault.
func Classify(text string) models.Mood {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.mood
			}
		}
	}
	return models.MoodDefault
}
