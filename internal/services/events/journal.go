package events

import (
	"sync"
	"time"
)

// Record is a sequenced entry of the journal
type Record struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Channel   string    `json:"channel,omitempty"`
	Event     Event     `json:"data"`
}

// Journal keeps the most recent routed events for incremental reads
type Journal struct {
	mu         sync.RWMutex
	nextSeq    int64
	maxRecords int
	records    []Record
}

// NewJournal creates a bounded in-memory event buffer
func NewJournal(maxRecords int) *Journal {
	if maxRecords <= 0 {
		maxRecords = 500
	}
	return &Journal{
		maxRecords: maxRecords,
		records:    make([]Record, 0, maxRecords),
	}
}

// HandleEvent appends an event, assigning sequence and timestamp
func (j *Journal) HandleEvent(ev Event) {
	j.Append(ev)
}

// Append stores one event and returns its record
func (j *Journal) Append(ev Event) Record {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	rec := Record{
		Seq:       j.nextSeq,
		Timestamp: time.Now().UTC(),
		Type:      ev.Type(),
		Event:     ev,
	}
	if routes := Routes(ev); len(routes) > 0 {
		rec.Channel = routes[len(routes)-1].String()
	}

	j.records = append(j.records, rec)
	if len(j.records) > j.maxRecords {
		trim := len(j.records) - j.maxRecords
		j.records = append([]Record(nil), j.records[trim:]...)
	}
	return rec
}

// Since returns records with sequence strictly greater than seq
func (j *Journal) Since(seq int64) []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Record, 0, len(j.records))
	for _, rec := range j.records {
		if rec.Seq > seq {
			out = append(out, rec)
		}
	}
	return out
}
