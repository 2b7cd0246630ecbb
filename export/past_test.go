package export

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gptLikeConfig is the generation-capable fixture family: a decoder whose
// with-past variant threads key/value cache tensors through the graph.
type gptLikeConfig struct {
	ConfigWithPast
}

func (c gptLikeConfig) numLayers() int {
	numLayers, _ := c.ModelConfig().GetIntAny(numLayersKeys...)
	return numLayers
}

func (c gptLikeConfig) Inputs() AxisMap {
	inputs := AxisMap{
		"input_ids":      {0: BatchAxisName, 1: SequenceAxisName},
		"attention_mask": {0: BatchAxisName, 1: SequenceAxisName},
	}
	if c.UsePast() {
		for name, axes := range PastKeyValueAxes(c.numLayers(), PastInputs) {
			inputs[name] = axes
		}
	}
	return inputs
}

func (c gptLikeConfig) Outputs() AxisMap {
	outputs := AxisMap{
		"logits": {0: BatchAxisName, 1: SequenceAxisName},
	}
	if c.UsePast() {
		for name, axes := range PastKeyValueAxes(c.numLayers(), PastOutputs) {
			outputs[name] = axes
		}
	}
	return outputs
}

func gptLikeModelConfig() *ModelConfig {
	return NewModelConfig(map[string]any{
		"model_type": "gpt-fixture",
		"use_cache":  true,
		"n_layer":    2,
		"n_head":     4,
		"n_embd":     32,
	})
}

// TestConfigValuesOverride tests the configuration-rewrite channel of the
// past-aware variant.
func TestConfigValuesOverride(t *testing.T) {
	t.Run("WithPast", func(t *testing.T) {
		config := WithPast(gptLikeModelConfig())
		require.Equal(t, Overrides{UseCacheKey: true}, config.ConfigValuesOverride())
	})

	t.Run("Default", func(t *testing.T) {
		config := NewConfigWithPast(gptLikeModelConfig())
		require.Equal(t, Overrides{UseCacheKey: false}, config.ConfigValuesOverride())
	})

	t.Run("WithoutCacheField", func(t *testing.T) {
		model := NewModelConfig(map[string]any{"n_layer": 2})
		require.Nil(t, WithPast(model).ConfigValuesOverride())
		require.Nil(t, NewConfigWithPast(model).ConfigValuesOverride())
	})

	t.Run("ValuesOverrideChannelUnchanged", func(t *testing.T) {
		// The forward-call channel still disables caching even in with-past
		// mode; only the configuration-rewrite channel follows the flag.
		config := WithPast(gptLikeModelConfig())
		require.Equal(t, Overrides{UseCacheKey: false}, config.ValuesOverride())
	})
}

func TestUsePastFlag(t *testing.T) {
	assert.False(t, NewConfigWithPast(gptLikeModelConfig()).UsePast())
	assert.True(t, WithPast(gptLikeModelConfig()).UsePast())
}

// TestWithPastDummyInputs tests that with-past descriptions add one
// zero-filled cache tensor pair per layer to the dummy inputs.
func TestWithPastDummyInputs(t *testing.T) {
	t.Run("PastTensorsAdded", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "<unk>"}
		config := gptLikeConfig{WithPast(gptLikeModelConfig())}
		inputs, err := config.GenerateDummyInputs(tok)
		require.NoError(t, err)

		// Base inputs plus 2 layers × (key, value).
		require.Len(t, inputs, 3+4)
		for _, name := range []string{
			"past_key_values.0.key", "past_key_values.0.value",
			"past_key_values.1.key", "past_key_values.1.value",
		} {
			require.Contains(t, inputs, name)
			shape := inputs[name].Shape()
			assert.Equal(t, dtypes.Float32, shape.DType)
			// [batch, heads, pastLength, embedding/heads]
			assert.Equal(t, []int{2, 4, 2, 8}, shape.Dimensions)
		}
	})

	t.Run("DefaultModeAddsNothing", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "<unk>"}
		config := gptLikeConfig{NewConfigWithPast(gptLikeModelConfig())}
		inputs, err := config.GenerateDummyInputs(tok)
		require.NoError(t, err)
		require.Len(t, inputs, 3)
		require.NotContains(t, inputs, "past_key_values.0.key")
	})

	t.Run("MissingLayerCount", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "<unk>"}
		model := NewModelConfig(map[string]any{"use_cache": true, "n_head": 4, "n_embd": 32})
		config := gptLikeConfig{WithPast(model)}
		_, err := config.GenerateDummyInputs(tok)
		require.Error(t, err)
		require.Contains(t, err.Error(), "defines none of")
	})

	t.Run("IndivisibleHeads", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "<unk>"}
		model := NewModelConfig(map[string]any{"use_cache": true, "n_layer": 2, "n_head": 4, "n_embd": 30})
		config := gptLikeConfig{WithPast(model)}
		_, err := config.GenerateDummyInputs(tok)
		require.Error(t, err)
		require.Contains(t, err.Error(), "not divisible")
	})

	t.Run("TokenizerErrorShortCircuits", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "<unk>", encodeErr: assert.AnError}
		config := gptLikeConfig{WithPast(gptLikeModelConfig())}
		_, err := config.GenerateDummyInputs(tok)
		require.ErrorIs(t, err, assert.AnError)
	})
}

// TestPastAwareAxisTables tests the fixture's full axis tables merge without
// conflicts, cache tensors included.
func TestPastAwareAxisTables(t *testing.T) {
	config := gptLikeConfig{WithPast(gptLikeModelConfig())}
	require.NoError(t, Validate(config))

	inputs := config.Inputs()
	require.Len(t, inputs, 2+4)
	outputs := config.Outputs()
	require.Len(t, outputs, 1+4)
	require.Contains(t, outputs, "present.1.value")

	merged, err := MergedDynamicAxes(inputs, outputs)
	require.NoError(t, err)
	require.Len(t, merged, 11)
	assert.Equal(t, Axes{0: BatchAxisName, 2: PastSequenceAxisName}, merged["past_key_values.1.key"])
}
