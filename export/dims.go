package export

const (
	// DefaultFixedBatch is the batch size used to trace a dynamic batch axis.
	// Two samples, not one, so the exporter cannot specialize the axis away.
	DefaultFixedBatch = 2

	// DefaultFixedSequence is the sequence length used to trace a dynamic
	// sequence axis.
	DefaultFixedSequence = 8
)

// EffectiveAxisDimension resolves the concrete length to use for one axis of
// the dummy inputs. A non-positive requested length is the dynamic-axis
// sentinel and selects the fixed fallback. tokensToAdd is subtracted from the
// base so that, after the tokenizer inserts its special tokens, the encoded
// length comes back to the caller's intended total.
//
// The result is floored at 1: a reservation larger than the base would
// otherwise ask the tokenizer for an empty or negative-length text.
func EffectiveAxisDimension(requested, fixed, tokensToAdd int) int {
	dim := requested
	if dim <= 0 {
		dim = fixed
	}
	dim -= tokensToAdd
	if dim < 1 {
		dim = 1
	}
	return dim
}
