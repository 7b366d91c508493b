// Package agents defines the capability-provider contract and the pool they
// register into at process start.
package agents

import (
	"context"

	"github.com/kindredloop/kindred/internal/types"
)

// Agent is a capability provider. The router scores agents via CanHandle and
// invokes Respond on the selected ones.
type Agent interface {
	// Name is the unique agent identifier, used for routing and @mentions
	Name() string

	// Description summarizes what the agent does, surfaced to the
	// completion service as an agent descriptor
	Description() string

	// CanHandle scores this agent's relevance for a message, 0.0 to 1.0
	CanHandle(msg types.Message, chatCtx *types.ChatContext) float64

	// Respond generates a reply for the message
	Respond(ctx context.Context, msg types.Message, chatCtx *types.ChatContext) (*types.AgentResponse, error)

	// MemoryRead loads the agent's per-user scratch state
	MemoryRead(ctx context.Context, userID string) (map[string]any, error)

	// MemoryWrite stores the agent's per-user scratch state
	MemoryWrite(ctx context.Context, userID string, data map[string]any) error
}

// ValueHolder is implemented by agents that declare value dimensions. Only
// these agents ever take a stance in opinion discussions.
type ValueHolder interface {
	ValueDimensions() *types.ValueDimensions
}
