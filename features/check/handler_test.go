package check_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doublespeak/features/check"
	"doublespeak/internal/retrieval"
)

type MockChecker struct {
	mock.Mock
}

func (m *MockChecker) Check(ctx context.Context, statement string, topK int) ([]retrieval.HypocrisyHit, error) {
	args := m.Called(ctx, statement, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.HypocrisyHit), args.Error(1)
}

func doCheck(t *testing.T, handler *check.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Check(rec, req)
	return rec
}

func TestCheck_Success(t *testing.T) {
	checker := new(MockChecker)
	handler := check.NewHandler(checker, 5)

	hits := []retrieval.HypocrisyHit{{
		Score:       0.93,
		CorpusText:  "I will never raise taxes.",
		SourceType:  "speech",
		SourceTitle: "Campaign rally",
		Locator:     "https://example.com/rally",
	}}
	checker.On("Check", mock.Anything, "We are raising taxes.", 3).Return(hits, nil)

	rec := doCheck(t, handler, `{"statement": "We are raising taxes.", "top_k": 3}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data []retrieval.HypocrisyHit `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 0.93, resp.Data[0].Score)
}

func TestCheck_DefaultTopK(t *testing.T) {
	checker := new(MockChecker)
	handler := check.NewHandler(checker, 5)

	checker.On("Check", mock.Anything, "statement here", 5).Return([]retrieval.HypocrisyHit{}, nil)

	rec := doCheck(t, handler, `{"statement": "statement here"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	checker.AssertExpectations(t)
}

func TestCheck_EmptyStatement(t *testing.T) {
	checker := new(MockChecker)
	handler := check.NewHandler(checker, 5)

	rec := doCheck(t, handler, `{"statement": "   "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	checker.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_NegativeTopK(t *testing.T) {
	handler := check.NewHandler(new(MockChecker), 5)
	rec := doCheck(t, handler, `{"statement": "x y z", "top_k": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheck_MalformedJSON(t *testing.T) {
	handler := check.NewHandler(new(MockChecker), 5)
	rec := doCheck(t, handler, `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheck_PipelineError(t *testing.T) {
	checker := new(MockChecker)
	handler := check.NewHandler(checker, 5)

	checker.On("Check", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("embedder down"))

	rec := doCheck(t, handler, `{"statement": "anything"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestCheck_EmptyCorpusGivesEmptyList(t *testing.T) {
	checker := new(MockChecker)
	handler := check.NewHandler(checker, 5)

	checker.On("Check", mock.Anything, mock.Anything, mock.Anything).Return([]retrieval.HypocrisyHit{}, nil)

	rec := doCheck(t, handler, `{"statement": "anything"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": []}`, rec.Body.String())
}
