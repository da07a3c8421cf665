package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/killallgit/sttclient/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `{
	"streams": [{
		"codec_type": "audio",
		"codec_name": "mp3",
		"sample_rate": "44100",
		"channels": 2,
		"duration": "120.5",
		"bit_rate": "128000"
	}],
	"format": {
		"format_name": "mp3",
		"duration": "120.533",
		"size": "1929000",
		"bit_rate": "128031"
	}
}`

func TestParseProbeOutput(t *testing.T) {
	md, err := ParseProbeOutput([]byte(sampleOutput))
	require.NoError(t, err)

	assert.Equal(t, 120.533, md.Duration)
	assert.Equal(t, 44100, md.SampleRate)
	assert.Equal(t, 2, md.Channels)
	assert.Equal(t, 128031, md.BitRate)
	assert.Equal(t, "mp3", md.Format)
	assert.Equal(t, "mp3", md.Codec)
	assert.Equal(t, int64(1929000), md.Size)
}

func TestParseProbeOutput_StreamFallbacks(t *testing.T) {
	raw := `{"streams":[{"codec_type":"audio","codec_name":"opus","sample_rate":"48000","channels":1,"duration":"3.5","bit_rate":"64000"}],"format":{"format_name":"ogg"}}`
	md, err := ParseProbeOutput([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 3.5, md.Duration)
	assert.Equal(t, 64000, md.BitRate)
}

func TestParseProbeOutput_NoAudio(t *testing.T) {
	_, err := ParseProbeOutput([]byte(`{"streams":[{"codec_type":"video"}],"format":{}}`))
	assert.ErrorIs(t, err, ErrNoAudioStream)

	_, err = ParseProbeOutput([]byte(`garbage`))
	assert.Error(t, err)
}

func TestProbe_MissingFile(t *testing.T) {
	p := NewProber("", time.Second)
	_, err := p.Probe(context.Background(), "/definitely/not/here.wav")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindFile))
}

func TestProbe_MissingBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	p := NewProber("/nonexistent/ffprobe", time.Second)
	assert.ErrorIs(t, p.Available(), ErrProbeNotFound)

	_, err := p.Probe(context.Background(), path)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindAudio))
	var probeErr *ProbeError
	assert.ErrorAs(t, err, &probeErr)
}

func TestProbe_RealBinary(t *testing.T) {
	p := NewProber("", 5*time.Second)
	if err := p.Available(); err != nil {
		t.Skip("ffprobe not installed")
	}

	path := filepath.Join(t.TempDir(), "not-audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not audio"), 0o644))

	_, err := p.Probe(context.Background(), path)
	assert.True(t, apperrors.Is(err, apperrors.KindAudio))
}
