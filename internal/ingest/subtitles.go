// Package ingest turns transcripts and plain text into corpus segments.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Cue is one timed caption. Timestamps are milliseconds, matching the
// subtitle wire formats; the corpus stores seconds.
type Cue struct {
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// StartSeconds returns the cue start converted for corpus storage.
func (c Cue) StartSeconds() float64 { return float64(c.StartMS) / 1000.0 }

// EndSeconds returns the cue end converted for corpus storage.
func (c Cue) EndSeconds() float64 { return float64(c.EndMS) / 1000.0 }

// ParseFile dispatches on the file extension (.srt, .vtt, .jsonl).
func ParseFile(path string) ([]Cue, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the upload handler, already sandboxed
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		return ParseSRT(string(data))
	case ".vtt":
		return ParseVTT(string(data))
	case ".jsonl":
		return ParseJSONL(string(data))
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %s", filepath.Ext(path))
	}
}

// srtTimeRe matches "HH:MM:SS,mmm --> HH:MM:SS,mmm".
var srtTimeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[,.](\d{1,3})\s+-->\s+(\d{2}):(\d{2}):(\d{2})[,.](\d{1,3})`)

// vttTimeRe additionally accepts the hourless "MM:SS.mmm" form WebVTT allows.
var vttTimeRe = regexp.MustCompile(`^(?:(\d{1,2}):)?(\d{2}):(\d{2})[.,](\d{1,3})\s+-->\s+(?:(\d{1,2}):)?(\d{2}):(\d{2})[.,](\d{1,3})`)

// ParseSRT parses SubRip subtitles. Multi-line cue text is collapsed to a
// single space-joined line; empty cues are dropped.
func ParseSRT(data string) ([]Cue, error) {
	return parseCues(data, srtTimeRe)
}

func parseCues(data string, timeRe *regexp.Regexp) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var current *Cue
	var textParts []string
	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(textParts, " "))
			if current.Text != "" {
				cues = append(cues, *current)
			}
		}
		current = nil
		textParts = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if m := timeRe.FindStringSubmatch(line); m != nil {
			flush()
			start, err := timestampMS(m[1], m[2], m[3], m[4])
			if err != nil {
				return nil, err
			}
			end, err := timestampMS(m[5], m[6], m[7], m[8])
			if err != nil {
				return nil, err
			}
			current = &Cue{StartMS: start, EndMS: end}
			continue
		}
		if current == nil {
			// Cue index line (or stray text before the first timestamp).
			continue
		}
		textParts = append(textParts, line)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cues, nil
}

// ParseVTT parses WebVTT. Header, NOTE and STYLE blocks are skipped; cue
// identifiers and settings are ignored. Cue timings may omit the hours
// field ("MM:SS.mmm").
func ParseVTT(data string) ([]Cue, error) {
	if !strings.HasPrefix(strings.TrimSpace(data), "WEBVTT") {
		return nil, fmt.Errorf("not a WebVTT file")
	}
	return parseCues(data, vttTimeRe)
}

// ParseJSONL parses newline-delimited JSON cues:
// {"start_ms": int, "end_ms": int, "text": string} per line.
func ParseJSONL(data string) ([]Cue, error) {
	var cues []Cue
	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var cue Cue
		if err := json.Unmarshal([]byte(line), &cue); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cue.Text = strings.TrimSpace(cue.Text)
		if cue.Text != "" {
			cues = append(cues, cue)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cues, nil
}

func timestampMS(hh, mm, ss, ms string) (int64, error) {
	// Hourless WebVTT timings leave the hours group empty.
	var h int64
	if hh != "" {
		var err error
		h, err = strconv.ParseInt(hh, 10, 64)
		if err != nil {
			return 0, err
		}
	}
	m, err := strconv.ParseInt(mm, 10, 64)
	if err != nil {
		return 0, err
	}
	s, err := strconv.ParseInt(ss, 10, 64)
	if err != nil {
		return 0, err
	}
	// Right-pad the millisecond field: "5" means 500ms.
	for len(ms) < 3 {
		ms += "0"
	}
	milli, err := strconv.ParseInt(ms[:3], 10, 64)
	if err != nil {
		return 0, err
	}
	return ((h*3600+m*60+s)*1000 + milli), nil
}
