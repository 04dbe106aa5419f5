package toolexecutor

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalStore_PutTake(t *testing.T) {
	store := NewApprovalStore()

	_, ok := store.Take(1)
	assert.False(t, ok)

	replaced := store.Put(1, PendingApproval{ToolName: ToolArchiveCard, TargetID: "c1"})
	assert.False(t, replaced)
	assert.True(t, store.Pending(1))
	assert.False(t, store.Pending(2))

	replaced = store.Put(1, PendingApproval{ToolName: ToolArchiveCard, TargetID: "c2"})
	assert.True(t, replaced)
	assert.Equal(t, 1, store.Len())

	approval, ok := store.Take(1)
	require.True(t, ok)
	assert.Equal(t, "c2", approval.TargetID)

	_, ok = store.Take(1)
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestApprovalStore_ConversationsAreIsolated(t *testing.T) {
	store := NewApprovalStore()
	store.Put(1, PendingApproval{TargetID: "a"})
	store.Put(2, PendingApproval{TargetID: "b"})

	approval, ok := store.Take(2)
	require.True(t, ok)
	assert.Equal(t, "b", approval.TargetID)
	assert.True(t, store.Pending(1))
}

func TestApprovalStore_TakeIsAtomic(t *testing.T) {
	store := NewApprovalStore()
	store.Put(7, PendingApproval{TargetID: "c1"})

	var taken int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := store.Take(7); ok {
				atomic.AddInt32(&taken, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), taken)
}
