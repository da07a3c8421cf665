package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/killallgit/sttclient/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_EqualityAndWireForm(t *testing.T) {
	assert.Equal(t, TaskChannel("abc"), Channel{Kind: KindTask, ID: "abc"})
	assert.NotEqual(t, TaskChannel("abc"), FileChannel("abc"))
	assert.True(t, TaskChannel("x") == TaskChannel("x"))

	tests := []struct {
		ch   Channel
		wire string
	}{
		{TranscriptionChannel, "transcription"},
		{FilesChannel, "files"},
		{ModelsChannel, "models"},
		{SystemChannel, "system"},
		{TaskChannel("t1"), "task:t1"},
		{FileChannel("f1"), "file:f1"},
		{ModelChannel("whisper-base"), "model:whisper-base"},
	}
	for _, tt := range tests {
		t.Run(tt.wire, func(t *testing.T) {
			assert.Equal(t, tt.wire, tt.ch.String())
			parsed, err := ParseChannel(tt.wire)
			require.NoError(t, err)
			assert.Equal(t, tt.ch, parsed)
		})
	}
}

func TestParseChannel_Invalid(t *testing.T) {
	for _, in := range []string{"", "task", "task:", "bogus:1", "files:1"} {
		_, err := ParseChannel(in)
		assert.Error(t, err, in)
	}
}

func allEvents() []Event {
	eta := 12.5
	return []Event{
		&TaskStarted{TaskID: "t1", Model: "whisper-base", FilePath: "/a.wav"},
		&TaskProgress{TaskID: "t1", Progress: 0.4, Stage: "decoding", ETASeconds: &eta},
		&TaskSegment{TaskID: "t1", Segment: models.Segment{Text: "hi", Start: 0, End: 1.25, Confidence: 0.9}},
		&TaskCompleted{TaskID: "t1", Result: &models.TranscriptionResult{
			Text:        "hi there",
			Segments:    []models.Segment{{Text: "hi there", Start: 0, End: 2}},
			Language:    "en",
			Confidence:  0.9,
			Duration:    2,
			CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}},
		&TaskFailed{TaskID: "t1", Error: "out of memory"},
		&UploadStarted{FileID: "f1", FileName: "a.wav", Size: 1024},
		&UploadProgress{FileID: "f1", Progress: 0.5, BytesSent: 512, TotalBytes: 1024},
		&UploadCompleted{FileID: "f1", TaskID: "t1"},
		&UploadFailed{FileID: "f1", Error: "reset"},
		&ModelDownloadStarted{ModelID: "large", Size: 3_000_000_000},
		&ModelDownloadProgress{ModelID: "large", Progress: 0.25, BytesDownloaded: 750, TotalBytes: 3000},
		&ModelDownloadCompleted{ModelID: "large"},
		&ModelDownloadFailed{ModelID: "large", Error: "disk full"},
		&ModelLoaded{ModelID: "large"},
		&ModelUnloaded{ModelID: "large"},
		&SystemStatus{Status: "ok", Message: "idle", ActiveTasks: 2, QueueLength: 1, CPUPercent: 12.5, MemoryMB: 2048},
		&ContainerStatus{Container: "asr", Status: "running", Message: "healthy"},
		&Connected{ClientID: "c1", ServerVersion: "2.0"},
		&Disconnected{Reason: "shutdown"},
		&Error{Code: "E42", Message: "bad frame"},
		&Ping{Timestamp: 1700000000000},
		&Pong{Timestamp: 1700000000001},
		&Subscribed{Channel: TaskChannel("t1")},
		&Unsubscribed{Channel: ModelsChannel},
		&Subscribe{Channel: FileChannel("f1")},
		&Unsubscribe{Channel: SystemChannel},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, ev := range allEvents() {
		t.Run(string(ev.Type()), func(t *testing.T) {
			raw, err := Encode(ev)
			require.NoError(t, err)

			decoded, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, ev, decoded)

			again, err := Encode(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(raw), string(again))
		})
	}
}

func TestEncode_WireShape(t *testing.T) {
	raw, err := Encode(&TaskProgress{TaskID: "t1", Progress: 0.5})
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "task_progress", wire["type"])
	data := wire["data"].(map[string]interface{})
	assert.Equal(t, "t1", data["task_id"])
	assert.Equal(t, 0.5, data["progress"])
}

func TestDecode_Flattened(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"ping","timestamp":42}`))
	require.NoError(t, err)
	assert.Equal(t, &Ping{Timestamp: 42}, ev)

	ev, err = Decode([]byte(`{"type":"model_loaded","model_id":"base"}`))
	require.NoError(t, err)
	assert.Equal(t, &ModelLoaded{ModelID: "base"}, ev)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte(`{"type":"teleport","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = Decode([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = Decode([]byte(`{"type":"task_progress","data":{"progress":"high"}}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)

	_, err = Decode([]byte(`{"type":"subscribed","data":{"channel":"nope:1"}}`))
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestRoutes(t *testing.T) {
	assert.Equal(t, []Channel{TranscriptionChannel, TaskChannel("t1")}, Routes(&TaskFailed{TaskID: "t1"}))
	assert.Equal(t, []Channel{FilesChannel, FileChannel("f1")}, Routes(&UploadProgress{FileID: "f1"}))
	assert.Equal(t, []Channel{ModelsChannel, ModelChannel("m")}, Routes(&ModelUnloaded{ModelID: "m"}))
	assert.Equal(t, []Channel{SystemChannel}, Routes(&ContainerStatus{}))
	assert.Nil(t, Routes(&Ping{}))
	assert.Nil(t, Routes(&Connected{}))
	assert.Nil(t, Routes(&Subscribed{Channel: SystemChannel}))
}

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter()
	var broad, specific, other, both []Event

	r.Listen(TranscriptionChannel, ListenerFunc(func(ev Event) { broad = append(broad, ev) }))
	r.Listen(TaskChannel("t1"), ListenerFunc(func(ev Event) { specific = append(specific, ev) }))
	r.Listen(TaskChannel("t2"), ListenerFunc(func(ev Event) { other = append(other, ev) }))

	dual := ListenerFunc(func(ev Event) { both = append(both, ev) })
	r.Listen(TranscriptionChannel, dual)
	removeDual := r.Listen(TaskChannel("t1"), dual)

	n := r.Dispatch(&TaskProgress{TaskID: "t1", Progress: 0.5})
	assert.Equal(t, 4, n)
	assert.Len(t, broad, 1)
	assert.Len(t, specific, 1)
	assert.Empty(t, other)
	assert.Len(t, both, 2, "registered twice, so delivered once per registration")

	removeDual()
	removeDual()
	assert.Equal(t, 0, r.Dispatch(&Ping{}))
	assert.Equal(t, int64(1), r.Stats()["unrouted"])
}

func TestJournal_Since(t *testing.T) {
	j := NewJournal(2)
	j.Append(&TaskStarted{TaskID: "a"})
	j.Append(&TaskStarted{TaskID: "b"})
	j.HandleEvent(&TaskStarted{TaskID: "c"})

	records := j.Since(0)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].Seq)
	assert.Equal(t, "task:c", records[1].Channel)
	assert.Len(t, j.Since(2), 1)
}
