package app

import (
	"context"
	"fmt"
)

// Task результат фоновой операции.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go запускает fn в отдельной горутине.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		t.value, t.err = fn(ctx)
	}()

	return t
}

// Done закрывается, когда задача завершилась.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait ждёт завершения задачи или отмены ctx.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
