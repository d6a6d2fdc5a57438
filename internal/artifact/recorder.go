// Package artifact saves annotated screenshots of failed identifiers.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/mj1618/list-import/internal/model"
	"github.com/mj1618/list-import/internal/platform"
	"go.uber.org/zap"
)

// Recorder writes one PNG per failure into a directory.
type Recorder struct {
	shots  platform.Screenshotter
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

// NewRecorder returns a Recorder writing into dir, created on first use.
func NewRecorder(shots platform.Screenshotter, dir string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		shots:  shots,
		dir:    dir,
		now:    time.Now,
		logger: logger.With(zap.String("component", "artifact")),
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// Save captures the viewport, annotates it with id, cause and marks, and
// returns the written path.
func (r *Recorder) Save(ctx context.Context, id string, cause error, marks []model.Element) (string, error) {
	shot, err := r.shots.CaptureViewport(ctx)
	if err != nil {
		return "", err
	}
	img, err := png.Decode(bytes.NewReader(shot.PNG))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	caption := id
	if cause != nil {
		caption += ": " + cause.Error()
	}
	annotated := Annotate(img, caption, marks, shot.Width)

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.png", r.now().Format("20060102-150405.000"), unsafeChars.ReplaceAllString(id, "_"))
	path := filepath.Join(r.dir, name)
	var buf bytes.Buffer
	if err := png.Encode(&buf, annotated); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	r.logger.Info("failure screenshot saved", zap.String("id", id), zap.String("path", path))
	return path, nil
}
