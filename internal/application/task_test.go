package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTask_Value(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})

	v, err := task.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)

	select {
	case <-task.Done():
	default:
		t.Fatal("task is not done after Wait")
	}
}

func TestTask_Error(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})

	_, err := task.Wait(context.Background())
	require.EqualError(t, err, "boom")
}

func TestTask_WaitCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	task := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := task.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTask_Panic(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context) (int, error) {
		panic("bad")
	})

	_, err := task.Wait(context.Background())
	require.ErrorContains(t, err, "panicked")
}
