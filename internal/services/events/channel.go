package events

import (
	"fmt"
	"strings"
)

// ChannelKind identifies what a subscription channel refers to
type ChannelKind string

const (
	// Broad categories
	KindTranscription ChannelKind = "transcription"
	KindFiles         ChannelKind = "files"
	KindModels        ChannelKind = "models"
	KindSystem        ChannelKind = "system"

	// Specific entities
	KindTask  ChannelKind = "task"
	KindFile  ChannelKind = "file"
	KindModel ChannelKind = "model"
)

// Channel is a subscription topic. Channels are compared with ==; String is
// only the wire encoding.
type Channel struct {
	Kind ChannelKind
	ID   string
}

var (
	TranscriptionChannel = Channel{Kind: KindTranscription}
	FilesChannel         = Channel{Kind: KindFiles}
	ModelsChannel        = Channel{Kind: KindModels}
	SystemChannel        = Channel{Kind: KindSystem}
)

// TaskChannel returns the channel of a single task
func TaskChannel(id string) Channel { return Channel{Kind: KindTask, ID: id} }

// FileChannel returns the channel of a single file
func FileChannel(id string) Channel { return Channel{Kind: KindFile, ID: id} }

// ModelChannel returns the channel of a single model
func ModelChannel(name string) Channel { return Channel{Kind: KindModel, ID: name} }

// IsBroad reports whether the channel is a category rather than an entity
func (c Channel) IsBroad() bool {
	switch c.Kind {
	case KindTranscription, KindFiles, KindModels, KindSystem:
		return true
	default:
		return false
	}
}

// String returns the wire form, for example "transcription" or "task:<id>"
func (c Channel) String() string {
	if c.IsBroad() {
		return string(c.Kind)
	}
	return string(c.Kind) + ":" + c.ID
}

// MarshalText implements encoding.TextMarshaler
func (c Channel) MarshalText() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Channel) UnmarshalText(text []byte) error {
	parsed, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseChannel decodes the wire form of a channel
func ParseChannel(s string) (Channel, error) {
	kind, id, hasID := strings.Cut(strings.TrimSpace(s), ":")
	c := Channel{Kind: ChannelKind(kind), ID: id}
	if c.IsBroad() && hasID {
		return Channel{}, fmt.Errorf("broad channel %q takes no id", kind)
	}
	if err := c.validate(); err != nil {
		return Channel{}, err
	}
	return c, nil
}

func (c Channel) validate() error {
	switch c.Kind {
	case KindTranscription, KindFiles, KindModels, KindSystem:
		return nil
	case KindTask, KindFile, KindModel:
		if c.ID == "" {
			return fmt.Errorf("channel %q requires an id", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown channel kind %q", c.Kind)
	}
}
