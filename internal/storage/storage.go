package storage

import "ptscope/internal/model"

// Storage defines a sink for raw log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}

// ErrorSink spools decode failures for later inspection.
type ErrorSink interface {
	PutDecodeError(decodeError model.DecodeError) error
}
