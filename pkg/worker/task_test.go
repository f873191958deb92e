package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBasicTask(t *testing.T) {
	task := NewBasicTask(func(ctx context.Context) error { return nil })

	assert.True(t, strings.HasPrefix(task.ID(), "task-"))
	assert.NoError(t, task.Execute(context.Background()))

	other := NewBasicTask(func(ctx context.Context) error { return nil })
	assert.NotEqual(t, task.ID(), other.ID())
}

func TestBasicTask_Execute(t *testing.T) {
	t.Run("returns function error", func(t *testing.T) {
		want := errors.New("boom")
		task := NewBasicTaskWithID("custom", func(ctx context.Context) error { return want })

		assert.Equal(t, "custom", task.ID())
		assert.ErrorIs(t, task.Execute(context.Background()), want)
	})

	t.Run("nil function", func(t *testing.T) {
		task := NewBasicTaskWithID("empty", nil)
		err := task.Execute(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})
}
