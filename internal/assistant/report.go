package assistant

import (
	log "log/slog"

	"miku/internal/history"
)

// Reporter receives the human-readable progress of a turn: status lines and
// the conversation itself.
type Reporter interface {
	Status(msg string)
	Chat(role history.Role, msg string)
}

// LogReporter writes progress to the default logger.
type LogReporter struct{}

func (LogReporter) Status(msg string) {
	log.Info(msg)
}

func (LogReporter) Chat(role history.Role, msg string) {
	log.Info(history.Label(role)+":", "text", msg)
}

// Reporters fans progress out to several reporters.
type Reporters []Reporter

func (rs Reporters) Status(msg string) {
	for _, r := range rs {
		r.Status(msg)
	}
}

func (rs Reporters) Chat(role history.Role, msg string) {
	for _, r := range rs {
		r.Chat(role, msg)
	}
}
