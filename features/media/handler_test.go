package media_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doublespeak/features/media"
	"doublespeak/internal/clipper"
	"doublespeak/internal/transcribe"
)

type MockClipper struct {
	mock.Mock
}

func (m *MockClipper) BatchExtract(ctx context.Context, reqs []clipper.ClipRequest, beforeMS, afterMS int64) ([]clipper.ClipResult, error) {
	args := m.Called(ctx, reqs, beforeMS, afterMS)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]clipper.ClipResult), args.Error(1)
}

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath string) ([]transcribe.TimedSegment, error) {
	args := m.Called(ctx, audioPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transcribe.TimedSegment), args.Error(1)
}

func postJSON(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestExtractClips(t *testing.T) {
	mockClipper := new(MockClipper)
	handler := media.NewHandler(mockClipper, new(MockTranscriber))

	mockClipper.On("BatchExtract", mock.Anything, mock.Anything, int64(2000), int64(3000)).
		Return([]clipper.ClipResult{
			{ClipPath: "clips/speech_28000_38000.mp4", WindowMS: [2]int64{28000, 38000}},
		}, nil)

	rr := postJSON(handler.ExtractClips, `{
		"segments": [{"media_path": "speech.mp4", "start_ms": 30000, "end_ms": 35000}],
		"before_ms": 2000,
		"after_ms": 3000
	}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "speech_28000_38000.mp4")
	mockClipper.AssertExpectations(t)
}

func TestExtractClips_DefaultPadding(t *testing.T) {
	mockClipper := new(MockClipper)
	handler := media.NewHandler(mockClipper, new(MockTranscriber))

	mockClipper.On("BatchExtract", mock.Anything, mock.Anything,
		int64(clipper.DefaultBeforeMS), int64(clipper.DefaultAfterMS)).
		Return([]clipper.ClipResult{}, nil)

	rr := postJSON(handler.ExtractClips, `{
		"segments": [{"media_path": "speech.mp4", "start_ms": 0, "end_ms": 1000}]
	}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	mockClipper.AssertExpectations(t)
}

func TestExtractClips_Validation(t *testing.T) {
	handler := media.NewHandler(new(MockClipper), new(MockTranscriber))

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{broken`},
		{"no segments", `{"segments": []}`},
		{"missing media path", `{"segments": [{"start_ms": 0, "end_ms": 1000}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(handler.ExtractClips, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "VALIDATION_ERROR")
		})
	}
}

func TestExtractClips_ClipperFailure(t *testing.T) {
	mockClipper := new(MockClipper)
	handler := media.NewHandler(mockClipper, new(MockTranscriber))

	mockClipper.On("BatchExtract", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("probe failed"))

	rr := postJSON(handler.ExtractClips, `{
		"segments": [{"media_path": "speech.mp4", "start_ms": 0, "end_ms": 1000}]
	}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")
}

func TestTranscribe(t *testing.T) {
	mockTranscriber := new(MockTranscriber)
	handler := media.NewHandler(new(MockClipper), mockTranscriber)

	mockTranscriber.On("Transcribe", mock.Anything, "audio/speech.wav").
		Return([]transcribe.TimedSegment{
			{Text: "We will not raise taxes.", Start: 0, End: 2.4},
		}, nil)

	rr := postJSON(handler.Transcribe, `{"path": "audio/speech.wav"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "We will not raise taxes.")
	mockTranscriber.AssertExpectations(t)
}

func TestTranscribe_MissingPath(t *testing.T) {
	handler := media.NewHandler(new(MockClipper), new(MockTranscriber))

	rr := postJSON(handler.Transcribe, `{}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "path is required")
}

func TestTranscribe_DependencyMissing(t *testing.T) {
	mockTranscriber := new(MockTranscriber)
	handler := media.NewHandler(new(MockClipper), mockTranscriber)

	mockTranscriber.On("Transcribe", mock.Anything, "audio/speech.wav").
		Return(nil, fmt.Errorf("%w: whisperx", transcribe.ErrDependencyMissing))

	rr := postJSON(handler.Transcribe, `{"path": "audio/speech.wav"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "DEPENDENCY_MISSING")
}

func TestTranscribe_Failure(t *testing.T) {
	mockTranscriber := new(MockTranscriber)
	handler := media.NewHandler(new(MockClipper), mockTranscriber)

	mockTranscriber.On("Transcribe", mock.Anything, "audio/speech.wav").
		Return(nil, errors.New("CUDA out of memory"))

	rr := postJSON(handler.Transcribe, `{"path": "audio/speech.wav"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")
	require.NotContains(t, rr.Body.String(), "CUDA")
}
