package checkpointer

import (
	"fmt"

	"github.com/samuelfneumann/golearn-dp/agent/policy"
)

// nStep implements checkpointing every N policy iteration steps
type nStep struct {
	interval int

	// filename returns the string filename of the file to save the policy
	// in.
	//
	// If each policy should be saved in a separate file with each file
	// having an incremented number as a suffix (e.g. policy1.bin,
	// policy2.bin, ..., policyK.bin), then simply use the static
	// function FilenameEnumerator. To keep only the most recent policy,
	// return the same filename on each call.
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps.
func NewNStep(n int, filename func() string) (Checkpointer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newNStep: interval must be positive, got %d",
			n)
	}
	return &nStep{
		interval: n,
		filename: filename,
	}, nil
}

// Checkpoint saves p if iteration is a multiple of the interval
func (n *nStep) Checkpoint(iteration int, p policy.Deterministic) error {
	if iteration%n.interval == 0 {
		if err := p.Save(n.filename()); err != nil {
			return fmt.Errorf("checkpoint: iteration %d: %v", iteration, err)
		}
	}
	return nil
}
