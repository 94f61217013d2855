package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ptscope/internal/model"
)

// JsonlStorage writes log records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutLogBatch appends a batch of log records as JSON lines.
func (s *JsonlStorage) PutLogBatch(logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return appendLines(s.path, func(writer *bufio.Writer) error {
		for _, record := range logs {
			if err := writeLine(writer, record); err != nil {
				return err
			}
		}
		return nil
	})
}

// JsonlErrorSink appends decode errors as JSON lines.
type JsonlErrorSink struct {
	path string
	mu   sync.Mutex
}

func NewJsonlErrorSink(path string) *JsonlErrorSink {
	return &JsonlErrorSink{path: path}
}

// PutDecodeError appends one decode error record.
func (s *JsonlErrorSink) PutDecodeError(decodeError model.DecodeError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendLines(s.path, func(writer *bufio.Writer) error {
		return writeLine(writer, decodeError)
	})
}

func appendLines(path string, write func(*bufio.Writer) error) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := write(writer); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func writeLine(writer *bufio.Writer, record interface{}) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return nil
}
