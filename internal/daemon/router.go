package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/ctx/internal/tracing"
	"github.com/harun/ctx/pkg/commandqueue"
	"github.com/rs/zerolog"
)

// Message is one inbound chat message
type Message struct {
	ConversationID int64
	Source         string // telegram, webhook, cli
	Content        string
	Cancel         bool   // clear a pending confirmation, Content is ignored
	Reply          string // canned reply: clear a pending confirmation and answer with Reply
}

// Router serializes messages per conversation and hands them to the front door
type Router struct {
	queue     *commandqueue.CommandQueue
	frontDoor *FrontDoor
	warnAfter time.Duration
	logger    zerolog.Logger
}

// NewRouter creates a message router
func NewRouter(queue *commandqueue.CommandQueue, frontDoor *FrontDoor, warnAfter time.Duration, logger zerolog.Logger) *Router {
	return &Router{
		queue:     queue,
		frontDoor: frontDoor,
		warnAfter: warnAfter,
		logger:    logger.With().Str("component", "router").Logger(),
	}
}

// laneFor returns the queue lane of a conversation
func laneFor(conversationID int64) string {
	return fmt.Sprintf("chat-%d", conversationID)
}

// RouteMessage processes a message after every earlier message of the same
// conversation, and returns the reply
func (r *Router) RouteMessage(ctx context.Context, msg Message) (string, error) {
	resultCh, err := r.submit(ctx, msg)
	if err != nil {
		return "", err
	}
	res := <-resultCh
	if res.Err != nil {
		return "", fmt.Errorf("failed to process message: %w", res.Err)
	}
	reply, _ := res.Value.(string)
	return reply, nil
}

// Dispatch queues a message and returns without waiting. deliver gets the
// reply once the front door has handled it. Messages dispatched in order for
// one conversation are handled in that order.
func (r *Router) Dispatch(ctx context.Context, msg Message, deliver func(reply string)) error {
	resultCh, err := r.submit(ctx, msg)
	if err != nil {
		return err
	}

	go func() {
		res := <-resultCh
		if res.Err != nil {
			r.logger.Error().Err(res.Err).Int64("conversation_id", msg.ConversationID).Msg("Message processing failed")
			deliver(FailureReply)
			return
		}
		reply, _ := res.Value.(string)
		deliver(reply)
	}()

	return nil
}

func (r *Router) submit(ctx context.Context, msg Message) (<-chan commandqueue.Result, error) {
	ctx = tracing.NewRequestContext(ctx, msg.ConversationID)
	logger := tracing.LoggerFromContext(ctx, r.logger)

	logger.Debug().
		Str("source", msg.Source).
		Msg("Routing message")

	options := &commandqueue.TaskOptions{
		WarnAfter: r.warnAfter,
		OnWait: func(wait time.Duration, queuePos int) {
			logger.Warn().
				Dur("wait", wait).
				Int("queue_position", queuePos).
				Msg("Message waiting behind earlier messages")
		},
	}

	resultCh, err := r.queue.EnqueueAsync(ctx, laneFor(msg.ConversationID), func(taskCtx context.Context) (interface{}, error) {
		switch {
		case msg.Cancel:
			return r.frontDoor.Cancel(taskCtx, msg.ConversationID), nil
		case msg.Reply != "":
			r.frontDoor.Discard(taskCtx, msg.ConversationID)
			return msg.Reply, nil
		default:
			return r.frontDoor.Handle(taskCtx, msg.ConversationID, msg.Content), nil
		}
	}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue message: %w", err)
	}
	return resultCh, nil
}
