package application

import "context"

type Control int

const (
	Continue Control = iota
	Stop
)

// Fold applies step to items in order, threading acc through, and returns as
// soon as a step answers Stop. Cancellation is checked between items only, so
// a step that already started always completes.
func Fold[T, A any](ctx context.Context, items []T, acc A, step func(ctx context.Context, acc A, item T) (A, Control)) (A, error) {
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return acc, err
		}
		var c Control
		acc, c = step(ctx, acc, it)
		if c == Stop {
			return acc, nil
		}
	}
	return acc, nil
}
