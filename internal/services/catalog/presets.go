package catalog

import "github.com/killallgit/sttclient/internal/models"

const hfBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

var multilingual = []string{"en", "es", "fr", "de", "it", "pt", "nl", "ru", "ja", "ko", "zh", "ar", "hi", "pl", "tr", "uk"}

var whisperParameters = models.ModelParameters{
	SampleRate:      16000,
	ChunkSize:       30,
	BatchSize:       1,
	MaxBatchDelayMs: 100,
}

// presets is the built-in catalog seeded at startup
var presets = []models.Model{
	{
		Name:         "whisper-tiny",
		DisplayName:  "Whisper Tiny",
		Description:  "Fastest multilingual model.",
		Size:         75 * 1024 * 1024,
		Languages:    multilingual,
		Capabilities: models.ModelCapabilities{Translation: true},
		DownloadURL:  hfBase + "ggml-tiny.bin",
	},
	{
		Name:         "whisper-base",
		DisplayName:  "Whisper Base",
		Description:  "Balanced speed/quality, multilingual.",
		Size:         142 * 1024 * 1024,
		Languages:    multilingual,
		Capabilities: models.ModelCapabilities{Translation: true},
		DownloadURL:  hfBase + "ggml-base.bin",
	},
	{
		Name:         "whisper-base.en",
		DisplayName:  "Whisper Base (English)",
		Description:  "Balanced speed/quality, English-only.",
		Size:         142 * 1024 * 1024,
		Languages:    []string{"en"},
		DownloadURL:  hfBase + "ggml-base.en.bin",
	},
	{
		Name:         "whisper-small",
		DisplayName:  "Whisper Small",
		Description:  "Higher quality multilingual model.",
		Size:         466 * 1024 * 1024,
		Languages:    multilingual,
		Capabilities: models.ModelCapabilities{Translation: true},
		DownloadURL:  hfBase + "ggml-small.bin",
	},
	{
		Name:         "whisper-medium",
		DisplayName:  "Whisper Medium",
		Description:  "High quality multilingual model.",
		Size:         1536 * 1024 * 1024,
		Languages:    multilingual,
		Capabilities: models.ModelCapabilities{Translation: true},
		DownloadURL:  hfBase + "ggml-medium.bin",
	},
	{
		Name:         "whisper-large-v3",
		DisplayName:  "Whisper Large v3",
		Description:  "Latest large multilingual model.",
		Size:         2970 * 1024 * 1024,
		Languages:    multilingual,
		Capabilities: models.ModelCapabilities{Translation: true},
		DownloadURL:  hfBase + "ggml-large-v3.bin",
	},
}

// Presets returns fresh copies of the built-in catalog in unavailable state
func Presets() []*models.Model {
	out := make([]*models.Model, len(presets))
	for i := range presets {
		m := presets[i].Clone()
		m.Type = models.ModelTypeBuiltin
		m.Status = models.ModelStatusUnavailable
		m.Parameters = whisperParameters
		out[i] = m
	}
	return out
}
