// Package taskio reads task batches from JSONL files and writes payloads
// back out the same way.
package taskio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZutrixPog/llmdispatch"
)

const PerTaskFile = "per_task.jsonl"

// maxLineSize bounds a single JSONL record; prompts with embedded code get
// long.
const maxLineSize = 16 << 20

var ErrMalformedRecord = errors.New("malformed task record")

type record struct {
	TaskID  any             `json:"task_id"`
	Prompt  string          `json:"prompt"`
	Request json.RawMessage `json:"request"`
}

// ReadTasks parses one task per non-empty line. A record's request is its
// "prompt" string, else its "request" value (a JSON string is unquoted), else
// the whole record. Records without a task_id get T0001, T0002, ... by
// position.
func ReadTasks(path string) ([]dispatcher.Task, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		tasks []dispatcher.Task
		line  int
	)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		task, err := parseRecord(raw, len(tasks)+1)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		tasks = append(tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return tasks, nil
}

func parseRecord(raw []byte, idx int) (dispatcher.Task, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return dispatcher.Task{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	task := dispatcher.Task{ID: taskID(rec.TaskID, idx)}

	switch {
	case rec.Prompt != "":
		task.Request = []byte(rec.Prompt)
	case len(rec.Request) > 0 && string(rec.Request) != "null":
		var s string
		if err := json.Unmarshal(rec.Request, &s); err == nil {
			task.Request = []byte(s)
		} else {
			task.Request = append([]byte(nil), rec.Request...)
		}
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return dispatcher.Task{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
		task.Request = compact.Bytes()
	}

	return task, nil
}

func taskID(v any, idx int) string {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return fmt.Sprintf("%v", id)
	}
	return fmt.Sprintf("T%04d", idx)
}

// WriteJSONL writes each payload compacted on its own line, creating the
// parent directory if needed. An existing file is replaced.
func WriteJSONL(path string, payloads []json.RawMessage) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	var buf bytes.Buffer
	for i, p := range payloads {
		buf.Reset()
		if err := json.Compact(&buf, p); err != nil {
			f.Close()
			return fmt.Errorf("payload %d: %w", i, err)
		}
		buf.WriteByte('\n')
		if _, err := w.Write(buf.Bytes()); err != nil {
			f.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
