package vault_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/calcvault/internal/events"
	"github.com/TheMichaelB/calcvault/internal/vault"
	"github.com/TheMichaelB/calcvault/test/testutil"
)

func TestRunnerTaskLifecycle(t *testing.T) {
	runner := vault.NewRunner(testutil.NewTestLogger(), 10)

	var taskID string
	task := runner.Go(t.Context(), vault.TaskIngest, func(ctx context.Context, task *vault.Task) (string, error) {
		taskID = events.GetTaskID(ctx)
		task.Report("halfway")
		return "all done", nil
	})

	status, err := task.Wait(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "all done", status)
	assert.Equal(t, vault.TaskSucceeded, task.State())
	assert.Equal(t, task.ID, taskID, "task id travels in the context")
	assert.Equal(t, vault.TaskIngest, task.Kind)

	runner.Close()

	var types []vault.EventType
	for event := range runner.Events() {
		assert.Equal(t, task.ID, event.TaskID)
		types = append(types, event.Type)
	}
	assert.Equal(t, []vault.EventType{vault.EventStarted, vault.EventProgress, vault.EventCompleted}, types)
}

func TestRunnerTaskFailure(t *testing.T) {
	runner := vault.NewRunner(testutil.NewTestLogger(), 10)
	defer runner.Close()

	task := runner.Go(t.Context(), vault.TaskDelete, func(context.Context, *vault.Task) (string, error) {
		return "Failed to delete", errors.New("boom")
	})

	status, err := task.Wait(t.Context())
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "Failed to delete", status)
	assert.Equal(t, vault.TaskFailed, task.State())
}

func TestRunnerTaskPanic(t *testing.T) {
	runner := vault.NewRunner(testutil.NewTestLogger(), 10)
	defer runner.Close()

	task := runner.Go(t.Context(), vault.TaskRetrieve, func(context.Context, *vault.Task) (string, error) {
		panic("unexpected")
	})

	_, err := task.Wait(t.Context())
	assert.ErrorContains(t, err, "task panicked")
	assert.Equal(t, vault.TaskFailed, task.State())
}

func TestRunnerTaskCancel(t *testing.T) {
	runner := vault.NewRunner(testutil.NewTestLogger(), 10)
	defer runner.Close()

	started := make(chan struct{})
	task := runner.Go(t.Context(), vault.TaskIngest, func(ctx context.Context, _ *vault.Task) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	<-started
	assert.Equal(t, 1, runner.Running())
	task.Cancel()

	_, err := task.Wait(t.Context())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, vault.TaskCancelled, task.State())

	testutil.WaitForCondition(t, func() bool { return runner.Running() == 0 }, time.Second, "task removed")
}

func TestRunnerWaitTimeout(t *testing.T) {
	runner := vault.NewRunner(testutil.NewTestLogger(), 10)
	defer runner.Close()

	release := make(chan struct{})
	task := runner.Go(t.Context(), vault.TaskIngest, func(context.Context, *vault.Task) (string, error) {
		<-release
		return "ok", nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, vault.TaskRunning, task.State())

	close(release)
	<-task.Done()
}

func TestRunnerClose(t *testing.T) {
	runner := vault.NewRunner(testutil.NewTestLogger(), 10)

	task := runner.Go(t.Context(), vault.TaskIngest, func(ctx context.Context, _ *vault.Task) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	runner.Close()
	assert.Equal(t, vault.TaskCancelled, task.State(), "outstanding tasks cancelled")

	late := runner.Go(t.Context(), vault.TaskIngest, func(context.Context, *vault.Task) (string, error) {
		t.Error("must not run after close")
		return "", nil
	})
	<-late.Done()
	assert.Equal(t, vault.TaskFailed, late.State())

	runner.Close()
}

func TestRunnerDropsEventsWhenFull(t *testing.T) {
	runner := vault.NewRunner(testutil.NewTestLogger(), 1)

	task := runner.Go(t.Context(), vault.TaskIngest, func(_ context.Context, task *vault.Task) (string, error) {
		for i := 0; i < 50; i++ {
			task.Report("tick")
		}
		return "done", nil
	})

	_, err := task.Wait(t.Context())
	require.NoError(t, err, "a slow observer never blocks work")
	runner.Close()
}
