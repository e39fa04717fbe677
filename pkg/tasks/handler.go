package tasks

import (
	"context"
	"encoding/json"
)

type (
	// Handler processes claimed tasks of one kind.
	Handler interface {
		Kind() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	// HandlerFunc is the typed processing function wrapped by NewHandler.
	HandlerFunc[T any] func(ctx context.Context, payload T) error
)

// NewHandler adapts a typed function into a Handler for the given kind.
func NewHandler[T any](kind string, fn HandlerFunc[T]) Handler {
	return &typedHandler[T]{kind: kind, fn: fn}
}

type typedHandler[T any] struct {
	kind string
	fn   HandlerFunc[T]
}

func (h *typedHandler[T]) Kind() string { return h.kind }

func (h *typedHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return err
	}
	return h.fn(ctx, t)
}
