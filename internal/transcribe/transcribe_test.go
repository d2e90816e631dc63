package transcribe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doublespeak/internal/transcribe"
)

const whisperOutput = `{
	"segments": [
		{"text": " We will not raise taxes. ", "start": 0.0, "end": 2.4},
		{"text": "That is a promise.", "start": 2.4, "end": 4.1}
	]
}`

func writeAudioFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.wav")
	require.NoError(t, os.WriteFile(path, []byte("riff"), 0o644))
	return path
}

func TestTranscribe(t *testing.T) {
	audioPath := writeAudioFile(t)
	outDir := t.TempDir()

	svc := transcribe.NewService("whisperx", "base", outDir)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		assert.Equal(t, "whisperx", name)
		assert.Equal(t, audioPath, args[0])
		assert.Contains(t, args, "--output_format")
		// whisperx drops {stem}.json into the output dir
		return os.WriteFile(filepath.Join(outDir, "speech.json"), []byte(whisperOutput), 0o644)
	})

	segments, err := svc.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "We will not raise taxes.", segments[0].Text)
	assert.InDelta(t, 2.4, segments[0].End, 1e-9)
	assert.Equal(t, "That is a promise.", segments[1].Text)

	vtt, err := os.ReadFile(filepath.Join(outDir, "speech.vtt"))
	require.NoError(t, err)
	assert.Contains(t, string(vtt), "WEBVTT\n\n")
	assert.Contains(t, string(vtt), "00:00:00.000 --> 00:00:02.400")
	assert.Contains(t, string(vtt), "We will not raise taxes.")
}

func TestTranscribe_MissingAudio(t *testing.T) {
	svc := transcribe.NewService("whisperx", "base", t.TempDir())
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		t.Fatal("runner should not be called")
		return nil
	})

	_, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "nope.wav"))
	assert.Error(t, err)
}

func TestTranscribe_ToolFailure(t *testing.T) {
	audioPath := writeAudioFile(t)
	svc := transcribe.NewService("whisperx", "base", t.TempDir())
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("CUDA out of memory")
	})

	_, err := svc.Transcribe(context.Background(), audioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcribe")
}

func TestTranscribe_MalformedOutput(t *testing.T) {
	audioPath := writeAudioFile(t)
	outDir := t.TempDir()
	svc := transcribe.NewService("whisperx", "base", outDir)
	svc.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return os.WriteFile(filepath.Join(outDir, "speech.json"), []byte("{broken"), 0o644)
	})

	_, err := svc.Transcribe(context.Background(), audioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse transcript output")
}

func TestWriteVTT_Timestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.vtt")
	err := transcribe.WriteVTT([]transcribe.TimedSegment{
		{Text: "hour mark", Start: 3661.5, End: 3663.25},
	}, path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "01:01:01.500 --> 01:01:03.250")
}
