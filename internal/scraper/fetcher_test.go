package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Get(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nAllow: /\n"))
		case "/page":
			atomic.AddInt32(&hits, 1)
			assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("content"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewFetcher("test-agent/1.0", 100, 5, time.Minute)

	body, err := f.Get(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "content", string(body))

	// Second read comes from the cache
	_, err = f.Get(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetcher_RobotsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		_, _ = w.Write([]byte("should not be reached"))
	}))
	defer srv.Close()

	f := NewFetcher("test-agent/1.0", 100, 5, time.Minute)

	_, err := f.Get(context.Background(), srv.URL+"/private/page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robots.txt disallows")
}

func TestFetcher_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher("test-agent/1.0", 100, 5, time.Minute)

	_, err := f.Get(context.Background(), srv.URL+"/page")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	checker := NewRobotsChecker("test-agent/1.0", 5*time.Second)
	allowed, _, err := checker.Allowed(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, allowed)
}
