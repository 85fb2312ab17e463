package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

// ErrExists is returned when a report with the same name was already written.
var ErrExists = errors.New("report already exists")

// Sink stores a rendered report and returns where it went.
type Sink interface {
	Persist(ctx context.Context, name, text string) (string, error)
}

// FileSink writes reports into a directory. Files are never overwritten.
type FileSink struct {
	dir    string
	logger *zap.Logger
}

// NewFileSink creates a FileSink rooted at dir.
func NewFileSink(dir string, logger *zap.Logger) *FileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{dir: dir, logger: logger.With(zap.String("component", "report_sink"))}
}

// Dir returns the output directory.
func (s *FileSink) Dir() string { return s.dir }

// Persist writes text to dir/name and returns the absolute path.
func (s *FileSink) Persist(ctx context.Context, name, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid report name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path, err := filepath.Abs(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("resolve report path: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, path)
		}
		return "", fmt.Errorf("open report: %w", err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}

	s.logger.Info("report written", zap.String("path", path), zap.Int("bytes", len(text)))
	return path, nil
}

const nameRunes = 30

// FileName derives a report file name from the question and time.
func FileName(question string, at time.Time) string {
	var sb strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(question) {
		if n == nameRunes {
			break
		}
		n++
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	stem := strings.Trim(sb.String(), "._")
	if stem == "" {
		stem = "untitled"
	}
	return at.Format("20060102-150405") + "_" + stem + ".md"
}
