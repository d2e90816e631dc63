package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// referenceLabelIndex maps known cross-encoder model families to the
// position of their contradiction class. Models absent from the map use
// index 0, which matches the label order of the NLI cross-encoders this
// service is configured with by default.
var referenceLabelIndex = map[string]int{
	"cross-encoder/nli-deberta-v3-xsmall":  0,
	"cross-encoder/nli-deberta-v3-base":    0,
	"cross-encoder/nli-roberta-base":       0,
	"cross-encoder/nli-distilroberta-base": 0,
}

// ReferenceBackend scores pairs through a hosted inference service,
// addressing the classifier by model name.
type ReferenceBackend struct {
	baseURL    string
	model      string
	apiKey     string
	client     *http.Client
	labelIndex int
}

func NewReferenceBackend(baseURL, model, apiKey string, client *http.Client) (*ReferenceBackend, error) {
	if model == "" {
		return nil, fmt.Errorf("nli model name is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("nli api key is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	idx := 0
	if declared, ok := referenceLabelIndex[model]; ok {
		idx = declared
	}
	return &ReferenceBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		client:     client,
		labelIndex: idx,
	}, nil
}

func (b *ReferenceBackend) Name() string { return "reference" }

func (b *ReferenceBackend) ContradictionIndex() int { return b.labelIndex }

func (b *ReferenceBackend) Logits(ctx context.Context, pairs []Pair) ([][]float64, error) {
	reqBody := map[string]any{
		"model": b.model,
		"pairs": pairs,
		"options": map[string]any{
			"raw_logits": true,
			"truncation": true,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s", b.baseURL, b.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference api error: %d", resp.StatusCode)
	}

	var result struct {
		Logits [][]float64 `json:"logits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Logits, nil
}
