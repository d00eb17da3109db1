package models

// Mood is the character's current expression. It is derived from the reply being generated and is
// never stored with the conversation.
type Mood string

const (
	MoodDefault  Mood = "default"
	MoodFunny    Mood = "funny"
	MoodAngry    Mood = "angry"
	MoodStanding Mood = "standing"
	MoodThinking Mood = "thinking"
)

var moodImages = map[Mood]string{
	MoodDefault:  "garfield.png",
	MoodFunny:    "garfield-funny.png",
	MoodAngry:    "garfield-angry.gif",
	MoodStanding: "garfield-standing.png",
	MoodThinking: "garfield-thinking.png",
}

// Moods returns every defined mood.
func Moods() []Mood {
	return []Mood{MoodDefault, MoodFunny, MoodAngry, MoodStanding, MoodThinking}
}

// Image returns the file name of the picture for the mood. Unknown moods get the default picture.
func (m Mood) Image() string {
	if img, ok := moodImages[m]; ok {
		return img
	}
	return moodImages[MoodDefault]
}
