package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/MegaGrindStone/garfield-web-ui/internal/models"
	"github.com/MegaGrindStone/garfield-web-ui/internal/session"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
)

type message struct {
	ID      string
	Role    string
	Content string
	// HTML is the rendered markdown of assistant messages. User messages are shown as typed.
	HTML template.HTML
}

type pageData struct {
	Messages     []message
	Mood         string
	MoodImage    string
	Bubble       template.HTML
	Initializing bool
	InputEnabled bool
	LastError    string
	LoadingText  string
	Version      uint64
}

// stateView is the payload of state events and of the state endpoint.
type stateView struct {
	Version      uint64 `json:"version"`
	State        string `json:"state"`
	Mood         string `json:"mood"`
	MoodImage    string `json:"moodImage"`
	Initializing bool   `json:"initializing"`
	Typing       bool   `json:"typing"`
	InputEnabled bool   `json:"inputEnabled"`
	Bubble       string `json:"bubble"`
	LastError    string `json:"lastError"`
	HTML         string `json:"html"`
}

// typingBubble is shown next to the character while a reply streams.
const typingBubble = "..."

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
	)
}

// renderMarkdown renders the character's text. Actions written as *yawns lazily* become emphasis.
// Raw HTML in the text is not rendered.
func (m *Main) renderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func (m *Main) pageData(s session.Snapshot) (pageData, error) {
	msgs := make([]message, len(s.Messages))
	for i, msg := range s.Messages {
		msgs[i] = message{
			ID:      msg.ID,
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role != models.RoleAssistant {
			continue
		}
		html, err := m.renderMarkdown(msg.Content)
		if err != nil {
			return pageData{}, err
		}
		msgs[i].HTML = html
	}

	var bubble template.HTML
	switch {
	case s.Typing():
		bubble = typingBubble
	case s.Greeting != "":
		html, err := m.renderMarkdown(s.Greeting)
		if err != nil {
			return pageData{}, err
		}
		bubble = html
	}

	return pageData{
		Messages:     msgs,
		Mood:         string(s.Mood),
		MoodImage:    s.MoodImage(),
		Bubble:       bubble,
		Initializing: s.Initializing(),
		InputEnabled: s.InputEnabled(),
		LastError:    s.LastError,
		LoadingText:  m.loadingText,
		Version:      s.Version,
	}, nil
}

func (m *Main) stateView(s session.Snapshot) (stateView, error) {
	data, err := m.pageData(s)
	if err != nil {
		return stateView{}, err
	}

	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, "messages", data.Messages); err != nil {
		return stateView{}, fmt.Errorf("failed to execute messages template: %w", err)
	}

	return stateView{
		Version:      s.Version,
		State:        string(s.State),
		Mood:         data.Mood,
		MoodImage:    data.MoodImage,
		Initializing: data.Initializing,
		Typing:       s.Typing(),
		InputEnabled: data.InputEnabled,
		Bubble:       string(data.Bubble),
		LastError:    data.LastError,
		HTML:         buf.String(),
	}, nil
}

func (m *Main) stateJSON(s session.Snapshot) ([]byte, error) {
	v, err := m.stateView(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
