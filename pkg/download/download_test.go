package download

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDownloader(t *testing.T) {
	options := DefaultOptions()
	downloader := NewDownloader(options)

	if downloader == nil {
		t.Fatal("NewDownloader returned nil")
	}
	if downloader.client == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if downloader.client.Timeout != options.Timeout {
		t.Errorf("Expected timeout %v, got %v", options.Timeout, downloader.client.Timeout)
	}
}

func TestDefaultOptions(t *testing.T) {
	options := DefaultOptions()

	if options.Timeout != 30*time.Minute {
		t.Errorf("Expected Timeout 30m, got %v", options.Timeout)
	}
	if options.MaxSize != 4*1024*1024*1024 {
		t.Errorf("Expected MaxSize 4GB, got %v", options.MaxSize)
	}
	if !strings.HasPrefix(options.UserAgent, "sttclient/") {
		t.Errorf("Unexpected User-Agent: %v", options.UserAgent)
	}
}

func TestFetch_Success(t *testing.T) {
	body := strings.Repeat("weights", 100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("ETag", `"abc"`)
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
		w.Write([]byte(body))
	}))
	defer server.Close()

	var calls int
	var last, lastTotal int64
	options := DefaultOptions()
	options.DestDir = t.TempDir()
	options.Token = "secret"
	options.Progress = func(downloaded, total int64) {
		calls++
		last, lastTotal = downloaded, total
	}

	result, err := NewDownloader(options).Fetch(context.Background(), server.URL+"/models/ggml-base.bin?download=true", "")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if result.FilePath != filepath.Join(options.DestDir, "ggml-base.bin") {
		t.Errorf("Unexpected path %s", result.FilePath)
	}
	if result.ContentLength != int64(len(body)) {
		t.Errorf("Expected %d bytes, got %d", len(body), result.ContentLength)
	}
	if result.ETag != `"abc"` {
		t.Errorf("Expected ETag, got %q", result.ETag)
	}
	if result.LastModified.IsZero() {
		t.Error("Expected Last-Modified to be parsed")
	}
	if calls == 0 || last != int64(len(body)) || lastTotal != int64(len(body)) {
		t.Errorf("Progress not reported correctly: calls=%d last=%d total=%d", calls, last, lastTotal)
	}

	data, err := os.ReadFile(result.FilePath)
	if err != nil || string(data) != body {
		t.Errorf("Downloaded content mismatch (err=%v)", err)
	}

	leftovers, _ := filepath.Glob(filepath.Join(options.DestDir, ".*.part"))
	if len(leftovers) != 0 {
		t.Errorf("Expected no partial files, found %v", leftovers)
	}
}

func TestFetch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	options := DefaultOptions()
	options.DestDir = t.TempDir()
	_, err := NewDownloader(options).Fetch(context.Background(), server.URL+"/missing.bin", "")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestFetch_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// flushing early leaves out Content-Length, forcing the streaming limit
		w.Write([]byte(strings.Repeat("x", 64)))
		w.(http.Flusher).Flush()
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	options := DefaultOptions()
	options.DestDir = t.TempDir()
	options.MaxSize = 100
	_, err := NewDownloader(options).Fetch(context.Background(), server.URL+"/big.bin", "")
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}

	entries, _ := os.ReadDir(options.DestDir)
	if len(entries) != 0 {
		t.Errorf("Expected destination to be empty, found %d entries", len(entries))
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	options := DefaultOptions()
	options.DestDir = t.TempDir()
	if _, err := NewDownloader(options).Fetch(ctx, server.URL+"/a.bin", ""); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-tiny.bin", "ggml-tiny.bin"},
		{"https://example.com/m/model.bin?download=1", "model.bin"},
		{"https://example.com/m/model.bin#frag", "model.bin"},
		{"https://example.com/dir/", ""},
		{"model.bin", ""},
	}

	for _, tt := range tests {
		if got := FileNameFromURL(tt.url); got != tt.want {
			t.Errorf("FileNameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestRemoveAndCleanup(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "model.bin")
	os.WriteFile(file, []byte("x"), 0o644)

	if err := Remove(file); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
	if err := Remove(file); err != nil {
		t.Errorf("Removing a missing file should not fail: %v", err)
	}

	partial := filepath.Join(dir, ".model.bin.123.part")
	os.WriteFile(partial, []byte("x"), 0o644)
	old := time.Now().Add(-2 * time.Hour)
	os.Chtimes(partial, old, old)

	if err := CleanupPartial(dir, time.Hour); err != nil {
		t.Fatalf("CleanupPartial failed: %v", err)
	}
	if _, err := os.Stat(partial); !os.IsNotExist(err) {
		t.Error("Expected partial file to be removed")
	}
}
