// Package checkpointer implements functionality for saving policies
// during policy iteration
package checkpointer

import "github.com/samuelfneumann/golearn-dp/agent/policy"

// Checkpointer checkpoints/saves policies based on the policy
// iteration step that produced them
type Checkpointer interface {
	Checkpoint(iteration int, p policy.Deterministic) error
}
