package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/garfield-web-ui/internal/session"
)

// HandleMessages accepts a user message from the "message" form field and starts the reply. The
// reply itself is delivered through HandleSSE; the response only contains the rendered history
// including the new user message.
//
// A blank message gets 400, a message sent while a reply is streaming gets 409, and a message sent
// while the engine is loading or unavailable gets 503. None of them changes the conversation.
func (m *Main) HandleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, err := m.session.StartMessage(r.FormValue("message")); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, session.ErrEmptyMessage):
			status = http.StatusBadRequest
		case errors.Is(err, session.ErrTurnInProgress):
			status = http.StatusConflict
		case errors.Is(err, session.ErrUnavailable):
			status = http.StatusServiceUnavailable
		}
		m.logger.Warn("Message rejected",
			slog.Int("status", status),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), status)
		return
	}

	data, err := m.pageData(m.session.Snapshot())
	if err != nil {
		m.logger.Error("Failed to prepare messages", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := m.templates.ExecuteTemplate(w, "messages", data.Messages); err != nil {
		m.logger.Error("Failed to execute messages template", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleState writes the current session state as JSON, in the same shape as state events.
func (m *Main) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	v, err := m.stateView(m.session.Snapshot())
	if err != nil {
		m.logger.Error("Failed to render state", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("Failed to encode state", slog.String(errLoggerKey, err.Error()))
	}
}
