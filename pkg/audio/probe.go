// Package audio inspects local audio files with ffprobe.
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/killallgit/sttclient/internal/models"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
)

var (
	ErrProbeNotFound = errors.New("ffprobe binary not found")
	ErrNoAudioStream = errors.New("no audio stream found")
)

// ProbeError represents a failed ffprobe invocation
type ProbeError struct {
	Operation string
	File      string
	Err       error
	Stderr    string
}

func (e *ProbeError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ffprobe %s failed for %s: %v (stderr: %s)", e.Operation, e.File, e.Err, e.Stderr)
	}
	return fmt.Sprintf("ffprobe %s failed for %s: %v", e.Operation, e.File, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// MetadataProvider extracts metadata from an audio file
type MetadataProvider interface {
	Probe(ctx context.Context, path string) (*models.AudioMetadata, error)
}

// Prober is the ffprobe-backed MetadataProvider
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber creates a prober. An empty path means "ffprobe" on PATH.
func NewProber(ffprobePath string, timeout time.Duration) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prober{ffprobePath: ffprobePath, timeout: timeout}
}

// Available reports whether the ffprobe binary can be found
func (p *Prober) Available() error {
	if _, err := exec.LookPath(p.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrProbeNotFound, p.ffprobePath)
	}
	return nil
}

// ffprobeOutput represents the JSON structure returned by ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		Bitrate    string `json:"bit_rate"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
		Bitrate    string `json:"bit_rate"`
	} `json:"streams"`
}

// Probe extracts metadata from a local audio file
func (p *Prober) Probe(ctx context.Context, path string) (*models.AudioMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.KindFile, "audio file %s not accessible", path)
	}
	if info.IsDir() {
		return nil, apperrors.File(fmt.Sprintf("%s is a directory", path))
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			err = fmt.Errorf("%w: %v", ErrProbeNotFound, err)
		}
		probeErr := &ProbeError{Operation: "metadata_extraction", File: path, Err: err, Stderr: stderr.String()}
		return nil, apperrors.Wrap(probeErr, apperrors.KindAudio, "reading audio metadata")
	}

	metadata, err := ParseProbeOutput(stdout.Bytes())
	if err != nil {
		probeErr := &ProbeError{Operation: "metadata_parsing", File: path, Err: err}
		return nil, apperrors.Wrap(probeErr, apperrors.KindAudio, "parsing audio metadata")
	}
	if metadata.Size == 0 {
		metadata.Size = info.Size()
	}
	return metadata, nil
}

// ParseProbeOutput converts ffprobe JSON into AudioMetadata
func ParseProbeOutput(raw []byte) (*models.AudioMetadata, error) {
	var output ffprobeOutput
	if err := json.Unmarshal(raw, &output); err != nil {
		return nil, err
	}

	metadata := &models.AudioMetadata{
		Format: output.Format.FormatName,
	}
	if d, err := strconv.ParseFloat(output.Format.Duration, 64); err == nil {
		metadata.Duration = d
	}
	if s, err := strconv.ParseInt(output.Format.Size, 10, 64); err == nil {
		metadata.Size = s
	}
	if b, err := strconv.Atoi(output.Format.Bitrate); err == nil {
		metadata.BitRate = b
	}

	found := false
	for _, stream := range output.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		found = true
		metadata.Codec = stream.CodecName
		metadata.Channels = stream.Channels
		if sr, err := strconv.Atoi(stream.SampleRate); err == nil {
			metadata.SampleRate = sr
		}
		// Use stream values if format values are not available
		if metadata.Duration == 0 {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				metadata.Duration = d
			}
		}
		if metadata.BitRate == 0 {
			if b, err := strconv.Atoi(stream.Bitrate); err == nil {
				metadata.BitRate = b
			}
		}
		break
	}

	if !found {
		return nil, ErrNoAudioStream
	}
	return metadata, nil
}
