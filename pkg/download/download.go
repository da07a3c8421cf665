// Package download streams remote files to disk with progress reporting.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var ErrTooLarge = errors.New("file exceeds maximum size")

// Options configures the download behavior
type Options struct {
	DestDir   string        // Directory for finished files
	MaxSize   int64         // Maximum file size in bytes (0 = no limit)
	Timeout   time.Duration // Download timeout
	Progress  ProgressFunc  // Optional progress callback
	UserAgent string        // User agent string
	Token     string        // Optional bearer token
}

// ProgressFunc is called during download to report progress.
// total is -1 when the server did not send a length.
type ProgressFunc func(downloaded, total int64)

// DefaultOptions returns default download options
func DefaultOptions() Options {
	return Options{
		DestDir:   filepath.Join(os.TempDir(), "sttclient-models"),
		MaxSize:   4 * 1024 * 1024 * 1024, // 4GB, the large whisper checkpoints are ~3GB
		Timeout:   30 * time.Minute,
		UserAgent: "sttclient/1.0",
	}
}

// Result contains information about a successful download
type Result struct {
	FilePath      string
	ContentType   string
	ContentLength int64
	ETag          string
	LastModified  time.Time
}

// Downloader fetches files into DestDir
type Downloader struct {
	client  *http.Client
	options Options
}

// NewDownloader creates a new downloader with the given options
func NewDownloader(options Options) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// WithProgress returns a downloader sharing the same client that reports to fn
func (d *Downloader) WithProgress(fn ProgressFunc) *Downloader {
	c := *d
	c.options.Progress = fn
	return &c
}

// Fetch downloads url into DestDir/name. The file is written to a temp file
// first and renamed into place once complete, so a partial download never
// shows up under the final name. An empty name is derived from the url.
func (d *Downloader) Fetch(ctx context.Context, url, name string) (*Result, error) {
	if name == "" {
		name = FileNameFromURL(url)
	}
	if name == "" {
		return nil, fmt.Errorf("cannot derive file name from %s", url)
	}
	log.Printf("[DEBUG] Starting download of %s from %s", name, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if d.options.UserAgent != "" {
		req.Header.Set("User-Agent", d.options.UserAgent)
	}
	if d.options.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.options.Token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	contentLength := resp.ContentLength
	if d.options.MaxSize > 0 && contentLength > d.options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, contentLength, d.options.MaxSize)
	}

	if err := os.MkdirAll(d.options.DestDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination: %w", err)
	}
	tempFile, err := os.CreateTemp(d.options.DestDir, "."+name+".*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	written, err := d.copy(resp.Body, tempFile, contentLength)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	finalPath := filepath.Join(d.options.DestDir, name)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to move download into place: %w", err)
	}
	log.Printf("[DEBUG] Downloaded %d bytes to %s", written, finalPath)

	result := &Result{
		FilePath:      finalPath,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: written,
		ETag:          resp.Header.Get("ETag"),
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		if t, err := http.ParseTime(lastMod); err == nil {
			result.LastModified = t
		}
	}
	return result, nil
}

func (d *Downloader) copy(src io.Reader, dst io.Writer, total int64) (int64, error) {
	reader := src
	if d.options.Progress != nil {
		reader = &progressReader{reader: src, total: total, callback: d.options.Progress}
	}
	if d.options.MaxSize <= 0 {
		return io.Copy(dst, reader)
	}

	// one extra byte tells an oversized body apart from an exact fit
	n, err := io.Copy(dst, io.LimitReader(reader, d.options.MaxSize+1))
	if err != nil {
		return n, err
	}
	if n > d.options.MaxSize {
		return n, ErrTooLarge
	}
	return n, nil
}

// Remove deletes a downloaded file. A missing file is not an error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	log.Printf("[DEBUG] Removing downloaded file: %s", path)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CleanupPartial removes leftover .part files older than maxAge
func CleanupPartial(dir string, maxAge time.Duration) error {
	files, err := filepath.Glob(filepath.Join(dir, ".*.part"))
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(file); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		log.Printf("[DEBUG] Cleaned up %d partial downloads", removed)
	}
	return nil
}

// FileNameFromURL returns the last path element of url without its query
func FileNameFromURL(url string) string {
	if idx := strings.IndexAny(url, "?#"); idx >= 0 {
		url = url[:idx]
	}
	name := path.Base(url)
	if name == "." || name == "/" || strings.HasSuffix(url, "/") || !strings.Contains(url, "/") {
		return ""
	}
	return name
}

// progressReader wraps a reader to report progress
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	callback   ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		pr.callback(pr.downloaded, pr.total)
	}
	return n, err
}
