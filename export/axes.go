package export

import (
	"fmt"
	"maps"

	"github.com/pkg/errors"
)

// Symbolic axis names shared between input and output descriptions. Tensors
// using the same name must agree on that dimension's extent at trace time,
// so families should reuse these instead of minting synonyms.
const (
	// BatchAxisName labels the batch axis.
	BatchAxisName = "batch"

	// SequenceAxisName labels the token-sequence axis.
	SequenceAxisName = "sequence"

	// PastSequenceAxisName labels the key/value cache axis, which covers the
	// accumulated past plus the current sequence.
	PastSequenceAxisName = "past_sequence + sequence"
)

// Axes maps an axis index to its symbolic name. Axes not listed are static
// and take whatever extent the dummy inputs were traced with.
type Axes map[int]string

// AxisMap maps tensor names to their dynamic axes.
type AxisMap map[string]Axes

// MergedDynamicAxes flattens the input and output descriptions into the
// single dynamic-axes table exporters consume. A tensor may appear on both
// sides (e.g. cache tensors threaded through a decoder), but then both sides
// must declare identical axes.
func MergedDynamicAxes(inputs, outputs AxisMap) (AxisMap, error) {
	merged := make(AxisMap, len(inputs)+len(outputs))
	for name, axes := range inputs {
		merged[name] = axes
	}
	for name, axes := range outputs {
		if prev, found := merged[name]; found {
			if !maps.Equal(prev, axes) {
				return nil, errors.Errorf("tensor %q declares conflicting dynamic axes as input (%v) and as output (%v)", name, prev, axes)
			}
			continue
		}
		merged[name] = axes
	}
	return merged, nil
}

// PastDirection selects the naming convention for key/value cache tensors:
// the model consumes them as "past_key_values.N.*" and produces them as
// "present.N.*".
type PastDirection int

const (
	PastInputs PastDirection = iota
	PastOutputs
)

// String implements fmt.Stringer.
func (d PastDirection) String() string {
	switch d {
	case PastInputs:
		return "inputs"
	case PastOutputs:
		return "outputs"
	}
	return fmt.Sprintf("PastDirection(%d)", int(d))
}

// PastKeyValueAxes returns the dynamic axes of the key and value cache
// tensors for numLayers attention layers, named by the standard HuggingFace
// export convention. Axis 0 is the batch, axis 2 the accumulated sequence.
func PastKeyValueAxes(numLayers int, direction PastDirection) AxisMap {
	prefix := "past_key_values"
	if direction == PastOutputs {
		prefix = "present"
	}
	axisMap := make(AxisMap, 2*numLayers)
	for layer := range numLayers {
		for _, kv := range [2]string{"key", "value"} {
			name := fmt.Sprintf("%s.%d.%s", prefix, layer, kv)
			axisMap[name] = Axes{0: BatchAxisName, 2: PastSequenceAxisName}
		}
	}
	return axisMap
}
