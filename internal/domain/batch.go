package domain

import (
	"errors"
	"fmt"
)

// Stage names a step of the per-item pipeline.
type Stage string

const (
	StageQueued    Stage = "queued"
	StageFetch     Stage = "fetch"
	StageParse     Stage = "parse"
	StageExtract   Stage = "extract"
	StagePersist   Stage = "persist"
	StagePersisted Stage = "persisted"
)

var (
	ErrFetchFailure       = errors.New("fetch failure")
	ErrParseFailure       = errors.New("parse failure")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrBatchLocked        = errors.New("batch is already running")
	ErrArticleNotFound    = errors.New("article not found")
)

// StageError records which stage failed, optionally for a single article.
type StageError struct {
	Stage Stage
	ID    string
	Err   error
}

func (e *StageError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Stage, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is classifies the error by stage so callers can match the failure kinds.
func (e *StageError) Is(target error) bool {
	switch target {
	case ErrFetchFailure:
		return e.Stage == StageFetch
	case ErrParseFailure:
		return e.Stage == StageParse
	case ErrPersistenceFailure:
		return e.Stage == StagePersist
	}
	return false
}

// ItemFailure describes a work item that did not reach the persisted state.
type ItemFailure struct {
	ID      string `json:"id"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// BatchResult aggregates the outcome of one batch run.
type BatchResult struct {
	RunID     string        `json:"run_id"`
	Chunks    int           `json:"chunks"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Rejected  int           `json:"rejected"`
	Mentions  int           `json:"mentions"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// Fail records a failed item.
func (r *BatchResult) Fail(id string, stage Stage, err error) {
	r.Failed++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.Failures = append(r.Failures, ItemFailure{ID: id, Stage: stage, Message: msg})
}
