// Package commandqueue serializes work per lane and drops redelivered updates.
//
// Invariants:
// - Tasks in the same lane execute one at a time in FIFO order.
// - Tasks in different lanes may execute concurrently.
// - A lane exists only while it has queued or running tasks.
// - A panicking task fails with an error and the lane moves on.
// - Close cancels running tasks and rejects new ones with ErrClosed.
// - DedupCache.Seen is check-and-set: the first caller for a key gets false.
//
// Usage:
//
//	queue := commandqueue.New()
//	defer queue.Close()
//	reply, err := queue.EnqueueWithContext(ctx, "chat-42", func(ctx context.Context) (interface{}, error) {
//		return frontDoor.Handle(ctx, 42, text), nil
//	}, nil)
package commandqueue
