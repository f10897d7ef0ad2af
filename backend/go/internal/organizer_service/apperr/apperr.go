// Package apperr classifies failures of the organizer service so the API layer
// can map them onto response envelopes and status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindExternal
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationError"
	case KindExternal:
		return "ExternalServiceError"
	case KindPersistence:
		return "PersistenceError"
	default:
		return "Unknown"
	}
}

// Stage identifies the pipeline step an external failure came from.
type Stage string

const (
	StageFetchMetadata  Stage = "FETCH_METADATA"
	StageExtractContent Stage = "EXTRACT_CONTENT"
	StageEmbed          Stage = "EMBED"
	StageIndexUpsert    Stage = "INDEX_UPSERT"
	StageIndexQuery     Stage = "INDEX_QUERY"
	StageAssemble       Stage = "ASSEMBLE_CONTEXT"
	StageAnalyze        Stage = "STAGE1_ANALYZE"
	StageOrganize       Stage = "STAGE2_ORGANIZE"
)

// Error is a classified error.
type Error struct {
	Kind    Kind
	Stage   Stage // set for KindExternal
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage %s)", msg, e.Stage)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// External wraps a failure of a remote dependency at the given stage.
func External(stage Stage, err error) *Error {
	return &Error{
		Kind:    KindExternal,
		Stage:   stage,
		Message: fmt.Sprintf("external service failed at %s", stage),
		Err:     err,
	}
}

// Persistence wraps a failed store write.
func Persistence(msg string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StageOf returns the stage of the first *Error in err's chain.
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
