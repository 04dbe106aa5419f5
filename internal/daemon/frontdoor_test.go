package daemon

import (
	"context"
	"errors"
	"testing"

	"github.com/harun/ctx/pkg/agent"
	"github.com/harun/ctx/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFrontDoor(t *testing.T) (*FrontDoor, *fakeTasks, *scriptedRunner, *toolexecutor.ApprovalStore) {
	t.Helper()

	tasks := newFakeTasks()
	approvals := toolexecutor.NewApprovalStore()
	executor, err := toolexecutor.New(toolexecutor.Config{
		Tasks:     tasks,
		Notes:     fakeNotes{},
		Approvals: approvals,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)

	runner := &scriptedRunner{}
	fd, err := NewFrontDoor(approvals, executor, runner, zerolog.Nop())
	require.NoError(t, err)

	return fd, tasks, runner, approvals
}

func TestNewFrontDoorValidation(t *testing.T) {
	approvals := toolexecutor.NewApprovalStore()
	runner := &scriptedRunner{}

	_, err := NewFrontDoor(nil, nil, runner, zerolog.Nop())
	assert.ErrorContains(t, err, "approval store is required")

	_, err = NewFrontDoor(approvals, nil, runner, zerolog.Nop())
	assert.ErrorContains(t, err, "tool executor is required")

	executor, err := toolexecutor.New(toolexecutor.Config{Tasks: newFakeTasks(), Notes: fakeNotes{}, Approvals: approvals})
	require.NoError(t, err)
	_, err = NewFrontDoor(approvals, executor, nil, zerolog.Nop())
	assert.ErrorContains(t, err, "agent runner is required")
}

func TestFrontDoor_PlainMessage(t *testing.T) {
	fd, _, runner, _ := newTestFrontDoor(t)

	reply := fd.Handle(context.Background(), 42, "what's on my board?")

	assert.Equal(t, "echo: what's on my board?", reply)
	assert.Equal(t, []string{"what's on my board?"}, runner.seen())
}

func TestFrontDoor_ArchiveConfirmed(t *testing.T) {
	tests := []string{"yes", "YES", "  Yes  "}

	for _, answer := range tests {
		t.Run(answer, func(t *testing.T) {
			fd, tasks, runner, approvals := newTestFrontDoor(t)
			ctx := context.Background()

			reply := fd.Handle(ctx, 42, "archive the dentist card")
			assert.Equal(t, "Archive card: 'Dentist'? Reply yes or no.", reply)
			assert.True(t, fd.Pending(42))
			assert.Empty(t, tasks.archivedIDs(), "nothing is archived before the answer")

			reply = fd.Handle(ctx, 42, answer)
			assert.Equal(t, "Archived 'Dentist'.", reply)
			assert.Equal(t, []string{"c1"}, tasks.archivedIDs())
			assert.Equal(t, 0, approvals.Len())
			assert.Len(t, runner.seen(), 1, "the answer never reaches the agent")
		})
	}
}

func TestFrontDoor_ArchiveCancelled(t *testing.T) {
	fd, tasks, runner, _ := newTestFrontDoor(t)
	ctx := context.Background()

	fd.Handle(ctx, 42, "archive the dentist card")
	reply := fd.Handle(ctx, 42, "No")

	assert.Equal(t, "Cancelled. 'Dentist' was not archived.", reply)
	assert.Empty(t, tasks.archivedIDs())
	assert.False(t, fd.Pending(42))
	assert.Len(t, runner.seen(), 1)
}

func TestFrontDoor_Cancel(t *testing.T) {
	fd, tasks, runner, _ := newTestFrontDoor(t)
	ctx := context.Background()

	assert.Equal(t, "Nothing to cancel.", fd.Cancel(ctx, 42))

	fd.Handle(ctx, 42, "archive the dentist card")
	assert.Equal(t, "Cancelled. 'Dentist' was not archived.", fd.Cancel(ctx, 42))
	assert.False(t, fd.Pending(42))
	assert.Equal(t, "Nothing to cancel.", fd.Cancel(ctx, 42))

	assert.Empty(t, tasks.archivedIDs())
	assert.Len(t, runner.seen(), 1)
}

func TestFrontDoor_Discard(t *testing.T) {
	fd, tasks, runner, approvals := newTestFrontDoor(t)
	ctx := context.Background()

	fd.Discard(ctx, 42)

	fd.Handle(ctx, 42, "archive the dentist card")
	require.True(t, fd.Pending(42))

	fd.Discard(ctx, 42)
	assert.False(t, fd.Pending(42))
	assert.Equal(t, 0, approvals.Len())

	reply := fd.Handle(ctx, 42, "yes")
	assert.Equal(t, "echo: yes", reply)
	assert.Empty(t, tasks.archivedIDs())
	assert.Len(t, runner.seen(), 2)
}

func TestFrontDoor_OtherReplyDropsApproval(t *testing.T) {
	fd, tasks, runner, _ := newTestFrontDoor(t)
	ctx := context.Background()

	fd.Handle(ctx, 42, "archive the dentist card")
	reply := fd.Handle(ctx, 42, "yes please, and add milk")

	assert.Equal(t, "echo: yes please, and add milk", reply)
	assert.Empty(t, tasks.archivedIDs())
	assert.False(t, fd.Pending(42))

	// a later yes has nothing to confirm
	reply = fd.Handle(ctx, 42, "yes")
	assert.Equal(t, "echo: yes", reply)
	assert.Empty(t, tasks.archivedIDs())
	assert.Len(t, runner.seen(), 3)
}

func TestFrontDoor_ConversationsAreIsolated(t *testing.T) {
	fd, tasks, _, _ := newTestFrontDoor(t)
	ctx := context.Background()

	fd.Handle(ctx, 1, "archive the dentist card")

	reply := fd.Handle(ctx, 2, "yes")
	assert.Equal(t, "echo: yes", reply)
	assert.Empty(t, tasks.archivedIDs())
	assert.True(t, fd.Pending(1))
}

func TestFrontDoor_RunFailure(t *testing.T) {
	fd, _, runner, _ := newTestFrontDoor(t)
	runner.err = &agent.Error{Code: agent.CodeLoopLimit, Message: "too many iterations"}

	reply := fd.Handle(context.Background(), 42, "hello")
	assert.Equal(t, FailureReply, reply)
}

func TestFrontDoor_ConfirmedActionFailure(t *testing.T) {
	fd, tasks, _, _ := newTestFrontDoor(t)
	ctx := context.Background()

	fd.Handle(ctx, 42, "archive the dentist card")
	tasks.fail = errors.New("trello down")

	reply := fd.Handle(ctx, 42, "yes")
	assert.Equal(t, FailureReply, reply)
	assert.False(t, fd.Pending(42), "a failed confirmation is not retried")
}
