// Package env declares the in-process boundary to the external environment
// collaborator. The environment must expose a transition function consistent
// with the agent's declared B tensors and an observation function consistent
// with its A tensors; the agent core assumes but does not verify that
// consistency beyond construction-time shape checks.
package env

// Environment produces observations and consumes actions, one discrete
// index per modality (respectively factor) per batch row.
type Environment interface {
	// Reset returns the initial observations, [row][modality].
	Reset() ([][]int, error)
	// Step applies the actions ([row][factor]) and returns the next
	// observations.
	Step(actions [][]int) ([][]int, error)
}
