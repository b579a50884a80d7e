package valueobjects

import "errors"

// ModelOptions is a value object holding the voice model tuning for a node.
// Immutable once constructed.
type ModelOptions struct {
	temperature           float64
	interruptionThreshold float64
}

// NewModelOptions creates validated model options
func NewModelOptions(temperature, interruptionThreshold float64) (ModelOptions, error) {
	if temperature < 0 || temperature > 2 {
		return ModelOptions{}, errors.New("temperature must be between 0 and 2")
	}
	if interruptionThreshold < 0 || interruptionThreshold > 1 {
		return ModelOptions{}, errors.New("interruption threshold must be between 0 and 1")
	}
	return ModelOptions{
		temperature:           temperature,
		interruptionThreshold: interruptionThreshold,
	}, nil
}

// DefaultModelOptions returns the options used for conversational nodes
func DefaultModelOptions() ModelOptions {
	return ModelOptions{temperature: 0.7, interruptionThreshold: 0.7}
}

// ObjectionModelOptions returns the options used for objection-handling
// nodes: lower temperature, harder to interrupt.
func ObjectionModelOptions() ModelOptions {
	return ModelOptions{temperature: 0.6, interruptionThreshold: 0.9}
}

// Temperature returns the model temperature
func (m ModelOptions) Temperature() float64 {
	return m.temperature
}

// InterruptionThreshold returns the interruption threshold
func (m ModelOptions) InterruptionThreshold() float64 {
	return m.interruptionThreshold
}

// Equals checks if two ModelOptions are equal
func (m ModelOptions) Equals(other ModelOptions) bool {
	return m.temperature == other.temperature &&
		m.interruptionThreshold == other.interruptionThreshold
}
