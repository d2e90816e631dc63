// Package clipper cuts evidence clips out of source media with ffmpeg.
package clipper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultBeforeMS and DefaultAfterMS pad the segment window so the
	// clip carries conversational context around the statement.
	DefaultBeforeMS = 5000
	DefaultAfterMS  = 10000
)

// Service wraps ffmpeg and ffprobe invocations.
type Service struct {
	ffmpegBinary  string
	ffprobeBinary string
	outDir        string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewService(ffmpegBinary, ffprobeBinary, outDir string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	if outDir == "" {
		outDir = "clips"
	}
	return &Service{
		ffmpegBinary:  ffmpegBinary,
		ffprobeBinary: ffprobeBinary,
		outDir:        outDir,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, truncateOutput(output))
	}
	return output, nil
}

// ProbeDurationMS returns the media duration in milliseconds.
func (s *Service) ProbeDurationMS(ctx context.Context, mediaPath string) (int64, error) {
	out, err := s.run(ctx, s.ffprobeBinary,
		"-v", "error", "-show_entries", "format=duration", "-of", "json", mediaPath)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", mediaPath, err)
	}
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("probe %s: parse: %w", mediaPath, err)
	}
	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("probe %s: duration %q: %w", mediaPath, probe.Format.Duration, err)
	}
	return int64(seconds * 1000), nil
}

// MakeClip extracts an mp4 around [startMS, endMS] padded by beforeMS and
// afterMS, clamped to the media duration. Stream copy is attempted first;
// cuts that miss a keyframe fall back to a fast re-encode.
func (s *Service) MakeClip(ctx context.Context, mediaPath string, startMS, endMS, beforeMS, afterMS int64) (string, error) {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure clip dir: %w", err)
	}

	durationMS, err := s.ProbeDurationMS(ctx, mediaPath)
	if err != nil {
		return "", err
	}

	clipStart := max64(0, startMS - beforeMS)
	clipEnd := min64(durationMS, endMS + afterMS)

	ss := formatSeconds(clipStart)
	to := formatSeconds(clipEnd)

	stem := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	outFile := filepath.Join(s.outDir, fmt.Sprintf("%s_%d_%d.mp4", stem, clipStart, clipEnd))

	_, copyErr := s.run(ctx, s.ffmpegBinary,
		"-y", "-ss", ss, "-i", mediaPath, "-to", to, "-c", "copy", outFile)
	if copyErr == nil {
		if _, statErr := os.Stat(outFile); statErr == nil {
			return outFile, nil
		}
	}

	if _, err := s.run(ctx, s.ffmpegBinary,
		"-y", "-ss", ss, "-i", mediaPath, "-to", to,
		"-c:v", "libx264", "-preset", "veryfast", "-c:a", "aac", outFile); err != nil {
		return "", fmt.Errorf("clip %s: %w", mediaPath, err)
	}
	return outFile, nil
}

// ClipRequest is one segment to extract in BatchExtract.
type ClipRequest struct {
	MediaPath string `json:"media_path"`
	StartMS   int64  `json:"start_ms"`
	EndMS     int64  `json:"end_ms"`
}

// ClipResult reports the produced file and the padded window.
type ClipResult struct {
	ClipPath string   `json:"clip_path"`
	WindowMS [2]int64 `json:"window_ms"`
}

// BatchExtract clips every request with shared padding. It stops at the
// first failure so callers can surface which segment broke.
func (s *Service) BatchExtract(ctx context.Context, reqs []ClipRequest, beforeMS, afterMS int64) ([]ClipResult, error) {
	results := make([]ClipResult, 0, len(reqs))
	for _, req := range reqs {
		path, err := s.MakeClip(ctx, req.MediaPath, req.StartMS, req.EndMS, beforeMS, afterMS)
		if err != nil {
			return results, err
		}
		results = append(results, ClipResult{
			ClipPath: path,
			WindowMS: [2]int64{max64(0, req.StartMS - beforeMS), req.EndMS + afterMS},
		})
	}
	return results, nil
}

func formatSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}

func truncateOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 300 {
		return s[:300]
	}
	return s
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
