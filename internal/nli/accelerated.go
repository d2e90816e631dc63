package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// bundle files a usable accelerated export must carry.
var bundleFiles = []string{"model.onnx", "tokenizer.json", "config.json"}

// AcceleratedBackend scores pairs through a local runtime sidecar serving a
// pre-exported inference graph from a well-known bundle directory.
type AcceleratedBackend struct {
	runtimeURL string
	client     *http.Client
	labelIndex int
}

// BundleAvailable reports whether dir holds a complete exported bundle.
// This is one half of the selection predicate; the other half is a runtime
// health probe. It inspects the filesystem only and has no side effects.
func BundleAvailable(dir string) bool {
	for _, name := range bundleFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// NewAcceleratedBackend loads the bundle's declared label order and probes
// the runtime. Any failure here is recoverable: the caller logs it and
// falls through to the reference backend.
func NewAcceleratedBackend(bundleDir, runtimeURL string, client *http.Client) (*AcceleratedBackend, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if !BundleAvailable(bundleDir) {
		return nil, fmt.Errorf("bundle dir %s incomplete", bundleDir)
	}

	idx, err := contradictionIndexFromConfig(filepath.Join(bundleDir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("read bundle config: %w", err)
	}

	b := &AcceleratedBackend{
		runtimeURL: strings.TrimRight(runtimeURL, "/"),
		client:     client,
		labelIndex: idx,
	}
	if err := b.probe(); err != nil {
		return nil, fmt.Errorf("runtime probe: %w", err)
	}
	return b, nil
}

func (b *AcceleratedBackend) Name() string { return "accelerated" }

func (b *AcceleratedBackend) ContradictionIndex() int { return b.labelIndex }

func (b *AcceleratedBackend) probe() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.runtimeURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (b *AcceleratedBackend) Logits(ctx context.Context, pairs []Pair) ([][]float64, error) {
	body, err := json.Marshal(map[string]any{"pairs": pairs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.runtimeURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runtime error: %d", resp.StatusCode)
	}

	var result struct {
		Logits [][]float64 `json:"logits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Logits, nil
}

// contradictionIndexFromConfig resolves the contradiction class position
// from the bundle's id2label map. The exported models in use declare it at
// index 0, but the mapping is model metadata, not an invariant, so it is
// read rather than assumed.
func contradictionIndexFromConfig(path string) (int, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is rooted at the configured bundle dir
	if err != nil {
		return 0, err
	}

	var cfg struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return 0, err
	}
	if len(cfg.ID2Label) == 0 {
		return 0, nil
	}

	for id, label := range cfg.ID2Label {
		if strings.Contains(strings.ToLower(label), "contradiction") {
			var idx int
			if _, err := fmt.Sscanf(id, "%d", &idx); err != nil {
				return 0, fmt.Errorf("label id %q not numeric", id)
			}
			return idx, nil
		}
	}
	return 0, fmt.Errorf("no contradiction label declared in %s", path)
}
