package pubchem

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mzaitsev/molecule-explorer/internal/ratelimit"
)

func testLimiter() ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		RequestsPerSec:    1000,
		Burst:             1000,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxRetries:        3,
	})
}

func TestFetchConformerSDF(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("record\n$$$$\n"))
	}))
	defer srv.Close()

	c := NewClient(testLimiter(), srv.URL, 3)
	body, err := c.FetchConformerSDF(context.Background(), []int64{2244, 702})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "record\n$$$$\n" {
		t.Fatalf("unexpected body: %q", body)
	}
	if !strings.Contains(gotPath, "/compound/cid/2244,702/record/SDF") {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
}

func TestFetchConformerSDFNoConformers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(testLimiter(), srv.URL, 3)
	if _, err := c.FetchConformerSDF(context.Background(), []int64{1}); !errors.Is(err, ErrNoConformers) {
		t.Fatalf("expected ErrNoConformers, got %v", err)
	}
}

func TestFetchConformerSDFRetriesThrottle(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n$$$$\n"))
	}))
	defer srv.Close()

	c := NewClient(testLimiter(), srv.URL, 3)
	body, err := c.FetchConformerSDF(context.Background(), []int64{1})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != "ok\n$$$$\n" {
		t.Fatalf("unexpected body: %q", body)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, saw %d calls", calls.Load())
	}
}

func TestFetchConformerSDFGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(testLimiter(), srv.URL, 2)
	if _, err := c.FetchConformerSDF(context.Background(), []int64{1}); err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
}

func TestDownloadConformersBatches(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("rec\n$$$$\n"))
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(testLimiter(), srv.URL, 3), 2)

	var buf bytes.Buffer
	res, err := f.DownloadConformers(context.Background(), []int64{1, 2, 3}, &buf)
	if err != nil {
		t.Fatalf("download: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("expected 2 batch requests, got %d: %v", len(paths), paths)
	}
	if !strings.Contains(paths[0], "cid/1,2/") || !strings.Contains(paths[1], "cid/3/") {
		t.Fatalf("unexpected batching: %v", paths)
	}
	if res.BatchesFetched != 2 || res.CIDsRequested != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if buf.String() != "rec\n$$$$\nrec\n$$$$\n" {
		t.Fatalf("batches must concatenate into one SDF stream: %q", buf.String())
	}
}

func TestDownloadConformersSkipsEmptyBatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "cid/9/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("rec\n$$$$\n"))
	}))
	defer srv.Close()

	f := NewFetcher(NewClient(testLimiter(), srv.URL, 3), 1)

	var buf bytes.Buffer
	res, err := f.DownloadConformers(context.Background(), []int64{9, 10}, &buf)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if res.BatchesEmpty != 1 || res.BatchesFetched != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if buf.String() != "rec\n$$$$\n" {
		t.Fatalf("empty batch must not write output: %q", buf.String())
	}
}
