package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/killallgit/sttclient/internal/models"
	apperrors "github.com/killallgit/sttclient/pkg/errors"
)

// Format represents a transcript export format
type Format string

const (
	FormatText Format = "text"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatJSON Format = "json"
)

// Formats lists every supported export format
var Formats = []Format{FormatText, FormatSRT, FormatVTT, FormatJSON}

// ParseFormat converts a user supplied name or file extension into a Format
func ParseFormat(name string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".") {
	case "text", "txt", "plain":
		return FormatText, nil
	case "srt", "subrip":
		return FormatSRT, nil
	case "vtt", "webvtt":
		return FormatVTT, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", apperrors.Newf(apperrors.KindFile, "unsupported export format: %s", name)
	}
}

// FormatFromPath guesses the format from a target file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Extension returns the file extension for the format, including the dot
func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatSRT:
		return ".srt"
	case FormatVTT:
		return ".vtt"
	case FormatJSON:
		return ".json"
	default:
		return ""
	}
}

// Encode renders the result in the requested format
func Encode(result *models.TranscriptionResult, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, result, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write renders the result into w
func Write(w io.Writer, result *models.TranscriptionResult, format Format) error {
	if result == nil {
		return apperrors.Generic("no transcription result to export")
	}

	var err error
	switch format {
	case FormatText:
		_, err = io.WriteString(w, result.JoinedText())
	case FormatSRT:
		err = writeSRT(w, result.Segments)
	case FormatVTT:
		err = writeVTT(w, result.Segments)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(result)
	default:
		return apperrors.Newf(apperrors.KindFile, "unsupported export format: %s", format)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindFile, "writing export")
	}
	return nil
}

// WriteFile renders the result into path, creating parent directories as needed
func WriteFile(path string, result *models.TranscriptionResult, format Format) error {
	data, err := Encode(result, format)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Wrapf(err, apperrors.KindFile, "creating export directory %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrapf(err, apperrors.KindFile, "writing export file %s", path)
	}
	return nil
}

func writeSRT(w io.Writer, segments []models.Segment) error {
	for i, s := range segments {
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, Timestamp(s.Start, ','), Timestamp(s.End, ','), s.Text); err != nil {
			return err
		}
	}
	return nil
}

func writeVTT(w io.Writer, segments []models.Segment) error {
	if _, err := io.WriteString(w, "WEBVTT\n\n"); err != nil {
		return err
	}
	for _, s := range segments {
		if _, err := fmt.Fprintf(w, "%s --> %s\n%s\n\n",
			Timestamp(s.Start, '.'), Timestamp(s.End, '.'), s.Text); err != nil {
			return err
		}
	}
	return nil
}

// Timestamp formats seconds as HH:MM:SS followed by sep and milliseconds
func Timestamp(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}
