package queue

import (
	"context"
	"encoding/json"
)

type (
	// Handler is the execution adapter contract. Implementations are
	// owned by application code and registered on a worker keyed by job
	// type. A handler either returns a result document (the job is
	// marked completed) or an error (the job is routed through the
	// retry policy). The context carries the job's execution deadline;
	// handlers are expected to respect it.
	Handler interface {
		JobType() string
		Handle(ctx context.Context, job *Job) (json.RawMessage, error)
	}

	// JobHandlerFunc is a typed handler function whose payload is
	// unmarshalled from the job's opaque payload document.
	JobHandlerFunc[T any] func(ctx context.Context, payload T) (json.RawMessage, error)
)

// NewJobHandler wraps a typed handler function into a Handler. The payload
// is decoded into T before the function runs; decode failures count as
// handler failures and go through the retry policy like any other error.
func NewJobHandler[T any](jobType string, fn JobHandlerFunc[T]) Handler {
	return &typedJobHandler[T]{
		jobType: jobType,
		fn:      fn,
	}
}

type typedJobHandler[T any] struct {
	jobType string
	fn      JobHandlerFunc[T]
}

func (h *typedJobHandler[T]) JobType() string {
	return h.jobType
}

func (h *typedJobHandler[T]) Handle(ctx context.Context, job *Job) (json.RawMessage, error) {
	var payload T
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, err
	}
	return h.fn(ctx, payload)
}

// HandlerFunc adapts a raw function into a Handler for job types that
// interpret the payload themselves.
func HandlerFunc(jobType string, fn func(ctx context.Context, job *Job) (json.RawMessage, error)) Handler {
	return &rawJobHandler{jobType: jobType, fn: fn}
}

type rawJobHandler struct {
	jobType string
	fn      func(ctx context.Context, job *Job) (json.RawMessage, error)
}

func (h *rawJobHandler) JobType() string {
	return h.jobType
}

func (h *rawJobHandler) Handle(ctx context.Context, job *Job) (json.RawMessage, error) {
	return h.fn(ctx, job)
}
