package service

import (
	"encoding/csv"
	"log/slog"
	"os"
	"sync"

	"github.com/mlopezv/docsearch-ai/internal/domain"
)

// FeedbackLog appends rated interactions to a CSV file. The header row is
// written once, when the file is first created. Write failures are logged
// and never block the interactive flow.
type FeedbackLog struct {
	path string
	mu   sync.Mutex
}

// NewFeedbackLog creates a feedback log writing to path.
func NewFeedbackLog(path string) *FeedbackLog {
	return &FeedbackLog{path: path}
}

// Save appends one interaction row with the given rating value.
func (l *FeedbackLog) Save(in domain.Interaction, rating string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("open feedback log", "path", l.path, "error", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		_ = w.Write([]string{"Timestamp", "Question", "Answer", "Rating"})
	}

	_ = w.Write([]string{
		in.Timestamp.Format("2006-01-02 15:04:05"),
		in.Question,
		in.Answer,
		rating,
	})
	w.Flush()

	if err := w.Error(); err != nil {
		slog.Error("write feedback log", "path", l.path, "error", err)
		return
	}
	slog.Info("feedback saved", "rating", rating)
}
