package tui

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// logHook feeds logrus entries into the App's log panel.
type logHook struct {
	app *App
}

// Levels reports the levels the panel displays.
func (h *logHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire may run off the UI goroutine; addLogEntry handles its own locking.
func (h *logHook) Fire(entry *logrus.Entry) error {
	if h.app == nil {
		return nil
	}

	fields := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		fields[k] = v
	}

	message := strings.ReplaceAll(entry.Message, "\n", " ")
	if len(message) > 200 {
		message = message[:200] + "..."
	}

	h.app.addLogEntry(strings.ToUpper(entry.Level.String()), message, fields)
	return nil
}

// SetupTUILogging routes logrus into the in-app log panel and silences the
// default output, which would otherwise corrupt the alternate screen. File
// logging can still be layered on afterwards by resetting the output.
func SetupTUILogging(app *App) {
	logrus.AddHook(&logHook{app: app})
	logrus.SetOutput(io.Discard)
}
