// File: queue/queue.go
// Package queue implements the broadcast queue file: an append-only,
// newline-delimited JSON channel that lets processes outside the event loop
// inject broadcasts. Writers append under an exclusive advisory lock; the
// loop's reader drains complete lines each tick and truncates what it
// applied.
// License: Apache-2.0

package queue

import (
	"bytes"
	"encoding/json"
	"os"
)

// RecordTypeBroadcast is the only record type the reader applies.
const RecordTypeBroadcast = "broadcast"

// Record is one queued intent.
type Record struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Namespace string `json:"namespace,omitempty"`
	Room      string `json:"room,omitempty"`
}

// Publisher appends records to the queue file. It is safe to use from any
// process; each append opens, locks, writes one line, and closes.
type Publisher struct {
	path string
}

// NewPublisher targets the queue file at path.
func NewPublisher(path string) *Publisher {
	return &Publisher{path: path}
}

// Publish appends one broadcast record.
func (p *Publisher) Publish(event string, data any, namespace, room string) error {
	line, err := json.Marshal(Record{
		Type:      RecordTypeBroadcast,
		Event:     event,
		Data:      data,
		Namespace: namespace,
		Room:      room,
	})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := lockFile(f); err != nil {
		return err
	}
	defer unlockFile(f)

	_, err = f.Write(line)
	return err
}

// Reader drains the queue file from inside the event loop.
type Reader struct {
	path string
}

// NewReader targets the queue file at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Drain reads every complete line, parses the valid ones, and rewrites the
// file to hold only the trailing partial line (usually nothing). A missing
// file means no work. skipped counts malformed lines for the caller's log.
func (r *Reader) Drain() (records []Record, skipped int, err error) {
	f, err := os.OpenFile(r.path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	defer f.Close()
	if err := lockFile(f); err != nil {
		return nil, 0, err
	}
	defer unlockFile(f)

	raw, err := readAll(f)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) == 0 {
		return nil, 0, nil
	}

	// A partial trailing line stays queued until its writer finishes it.
	complete := raw
	var tail []byte
	if last := bytes.LastIndexByte(raw, '\n'); last < 0 {
		return nil, 0, nil
	} else if last+1 < len(raw) {
		complete = raw[:last+1]
		tail = raw[last+1:]
	}

	for _, line := range bytes.Split(complete, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.Type != RecordTypeBroadcast || rec.Event == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if err := f.Truncate(0); err != nil {
		return nil, skipped, err
	}
	if len(tail) > 0 {
		if _, err := f.WriteAt(tail, 0); err != nil {
			return nil, skipped, err
		}
	}
	return records, skipped, nil
}

func readAll(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size())
	n, err := f.ReadAt(buf, 0)
	if err != nil && n < len(buf) {
		return nil, err
	}
	return buf[:n], nil
}
