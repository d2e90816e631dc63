package nli

import (
	"log/slog"
	"net/http"
)

// Options configures backend selection. Selection runs exactly once, at
// construction; the chosen backend is fixed for the scorer's lifetime.
type Options struct {
	// Accelerated bundle
	BundleDir  string
	RuntimeURL string
	// Hosted reference model
	Model        string
	InferenceURL string
	APIKey       string

	// PreferBundled tries the accelerated bundle first. When false the
	// bundle is never probed.
	PreferBundled bool

	HTTPClient *http.Client
}

// SelectBackend picks the accelerated backend when the bundle predicate
// holds (files present and the runtime answers), otherwise the reference
// backend. An accelerated load failure is logged and recovered by falling
// through; only the absence of both variants is an error.
func SelectBackend(opts Options) (Backend, error) {
	if opts.PreferBundled && BundleAvailable(opts.BundleDir) {
		backend, err := NewAcceleratedBackend(opts.BundleDir, opts.RuntimeURL, opts.HTTPClient)
		if err == nil {
			slog.Info("nli backend selected", "backend", backend.Name(), "bundle_dir", opts.BundleDir)
			return backend, nil
		}
		slog.Warn("accelerated nli bundle unusable, falling back to reference model",
			"bundle_dir", opts.BundleDir, "error", err)
	}

	backend, err := NewReferenceBackend(opts.InferenceURL, opts.Model, opts.APIKey, opts.HTTPClient)
	if err != nil {
		slog.Error("no nli backend available", "error", err)
		return nil, ErrNoScoringBackend
	}
	slog.Info("nli backend selected", "backend", backend.Name(), "model", opts.Model)
	return backend, nil
}
