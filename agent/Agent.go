// Package agent defines the agent contract used by the training loop:
// agents select actions, learn from batches of transitions sampled
// from a replay buffer, and synchronize their target approximators.
package agent

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gorl/expreplay"
	ts "github.com/samuelfneumann/gorl/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy and Learner share the
// same weights so that any changes the Learner makes are reflected in
// the actions the Policy chooses.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Update performs a single update using a batch of transitions. The
	// returned loss is the importance-weighted mean squared TD error of
	// the batch, and tdErrors holds the TD error of each transition
	// before the update, in batch order.
	Update(b *expreplay.Batch) (loss float64, tdErrors []float64, err error)

	// SyncTarget moves the target weights towards the learned weights:
	// θ' <- τθ + (1 - τ)θ'. A tau of 1 copies the learned weights.
	SyncTarget(tau float64) error
}

// Policy represents a policy that an agent can have.
type Policy interface {
	SelectAction(t ts.TimeStep) *mat.VecDense
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// EGreedy is an Agent whose policy is ε-greedy with respect to its
// action values.
type EGreedy interface {
	Agent

	// Epsilon returns the training ε at the current step
	Epsilon() float64

	// SetStep sets the step used to anneal the training ε
	SetStep(step int)

	// SetEvalEpsilon sets the ε used in evaluation mode
	SetEvalEpsilon(epsilon float64)
}
