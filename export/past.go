package export

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// defaultPastLength is the length of the accumulated cache axis in dummy
// past tensors. Like the other fixed trace dimensions it only needs to be
// plausible and non-degenerate.
const defaultPastLength = 2

// Hyperparameter aliases probed to shape past key/value tensors.
var (
	numLayersKeys = []string{"num_hidden_layers", "n_layer", "num_layers"}
	numHeadsKeys  = []string{"num_attention_heads", "n_head", "num_heads"}
	hiddenKeys    = []string{"hidden_size", "n_embd", "d_model"}
)

// ConfigWithPast is the embeddable base for generation-capable model
// families whose traced graph can thread key/value cache tensors through.
// The mode is fixed at construction: NewConfigWithPast describes the
// cache-less graph, WithPast the cache-enabled one.
type ConfigWithPast struct {
	BaseConfig
	usePast bool
}

// NewConfigWithPast describes a model exported without key/value cache
// tensors.
func NewConfigWithPast(model *ModelConfig) ConfigWithPast {
	return ConfigWithPast{BaseConfig: NewBaseConfig(model)}
}

// WithPast describes a model exported with key/value cache tensors.
func WithPast(model *ModelConfig) ConfigWithPast {
	return ConfigWithPast{BaseConfig: NewBaseConfig(model), usePast: true}
}

// UsePast reports whether the export threads key/value cache tensors
// through the graph.
func (c ConfigWithPast) UsePast() bool {
	return c.usePast
}

// ConfigValuesOverride returns model configuration fields to rewrite before
// the model is built for tracing, or nil. It is a separate channel from
// ValuesOverride, which targets the forward call during tracing: this one
// switches the cache code path itself on or off.
func (c ConfigWithPast) ConfigValuesOverride() Overrides {
	if c.model.Has(UseCacheKey) {
		return Overrides{UseCacheKey: c.usePast}
	}
	return nil
}

// GenerateDummyInputs extends the base algorithm: in with-past mode it adds
// a zero-filled float32 cache tensor pair per layer, shaped
// [batch, heads, pastLength, hiddenSize/heads] and named
// "past_key_values.N.key"/"past_key_values.N.value". The layer, head and
// hidden-size counts are probed from the model configuration under their
// usual aliases; a missing one is an error naming it.
func (c ConfigWithPast) GenerateDummyInputs(tok Tokenizer, opts ...DummyInputOption) (DummyInputs, error) {
	inputs, err := c.BaseConfig.GenerateDummyInputs(tok, opts...)
	if err != nil {
		return nil, err
	}
	if !c.usePast {
		return inputs, nil
	}

	numLayers, found := c.model.GetIntAny(numLayersKeys...)
	if !found {
		return nil, errors.Errorf("cannot shape past key/value tensors: model config defines none of %v", numLayersKeys)
	}
	numHeads, found := c.model.GetIntAny(numHeadsKeys...)
	if !found {
		return nil, errors.Errorf("cannot shape past key/value tensors: model config defines none of %v", numHeadsKeys)
	}
	hiddenSize, found := c.model.GetIntAny(hiddenKeys...)
	if !found {
		return nil, errors.Errorf("cannot shape past key/value tensors: model config defines none of %v", hiddenKeys)
	}
	if numHeads <= 0 || hiddenSize%numHeads != 0 {
		return nil, errors.Errorf("cannot shape past key/value tensors: hidden size %d is not divisible by %d heads", hiddenSize, numHeads)
	}

	batchSize := EffectiveAxisDimension(newDummyInputOptions(opts).batchSize, DefaultFixedBatch, 0)
	if ids, found := inputs["input_ids"]; found {
		batchSize = ids.Shape().Dimensions[0]
	}
	pastShape := shapes.Make(dtypes.Float32, batchSize, numHeads, defaultPastLength, hiddenSize/numHeads)
	for layer := range numLayers {
		for _, kv := range [2]string{"key", "value"} {
			inputs[fmt.Sprintf("past_key_values.%d.%s", layer, kv)] = tensors.FromShape(pastShape)
		}
	}
	return inputs, nil
}
