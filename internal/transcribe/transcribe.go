// Package transcribe produces timed transcripts from audio via WhisperX.
package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrDependencyMissing indicates the whisperx binary is not installed.
var ErrDependencyMissing = errors.New("whisperx not available")

// TimedSegment is one transcribed utterance with second offsets.
type TimedSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Service invokes the whisperx CLI and converts its JSON output.
type Service struct {
	binary        string
	model         string
	outDir        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

func NewService(binary, model, outDir string) *Service {
	if binary == "" {
		binary = "whisperx"
	}
	if model == "" {
		model = "base"
	}
	if outDir == "" {
		outDir = "transcripts"
	}
	return &Service{binary: binary, model: model, outDir: outDir}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Transcribe runs WhisperX on audioPath, writes a WebVTT transcript next
// to the JSON output and returns the timed segments.
func (s *Service) Transcribe(ctx context.Context, audioPath string) ([]TimedSegment, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file: %w", err)
	}
	if s.commandRunner == nil {
		if _, err := exec.LookPath(s.binary); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrDependencyMissing, s.binary)
		}
	}
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure transcript dir: %w", err)
	}

	if err := s.run(ctx, s.binary,
		audioPath,
		"--model", s.model,
		"--output_format", "json",
		"--output_dir", s.outDir); err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", audioPath, err)
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(s.outDir, stem+".json")
	data, err := os.ReadFile(jsonPath) // #nosec G304 -- path built from our own output dir
	if err != nil {
		return nil, fmt.Errorf("read transcript output: %w", err)
	}

	var out struct {
		Segments []TimedSegment `json:"segments"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse transcript output: %w", err)
	}
	for i := range out.Segments {
		out.Segments[i].Text = strings.TrimSpace(out.Segments[i].Text)
	}

	vttPath := filepath.Join(s.outDir, stem+".vtt")
	if err := WriteVTT(out.Segments, vttPath); err != nil {
		return nil, err
	}
	return out.Segments, nil
}

// WriteVTT renders segments as a WebVTT file.
func WriteVTT(segments []TimedSegment, path string) error {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for i, seg := range segments {
		sb.WriteString(fmt.Sprintf("%d\n%s --> %s\n%s\n\n",
			i+1, vttTimestamp(seg.Start), vttTimestamp(seg.End), strings.TrimSpace(seg.Text)))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write vtt: %w", err)
	}
	return nil
}

func vttTimestamp(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600+minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, secs)
}
