package export

// OptimizerFeatures is the flag vocabulary consumed by the post-export graph
// optimizer for transformer models. The optimizer itself is external; this
// package only fixes the vocabulary and its defaults so every exporter
// speaks the same dialect.
type OptimizerFeatures struct {
	Gelu              bool
	LayerNorm         bool
	Attention         bool
	SkipLayerNorm     bool
	EmbedLayerNorm    bool
	BiasSkipLayerNorm bool
	BiasGelu          bool

	// GeluApproximation trades accuracy for speed and stays off unless a
	// deployment explicitly opts in.
	GeluApproximation bool
}

// DefaultOptimizerFeatures returns the default feature set for BERT-style
// models: every fusion enabled except the approximate GELU.
func DefaultOptimizerFeatures() OptimizerFeatures {
	return OptimizerFeatures{
		Gelu:              true,
		LayerNorm:         true,
		Attention:         true,
		SkipLayerNorm:     true,
		EmbedLayerNorm:    true,
		BiasSkipLayerNorm: true,
		BiasGelu:          true,
		GeluApproximation: false,
	}
}

// Map returns the wire form of the flags, keyed by the names the optimizer
// expects.
func (f OptimizerFeatures) Map() map[string]bool {
	return map[string]bool{
		"enable_gelu":                 f.Gelu,
		"enable_layer_norm":           f.LayerNorm,
		"enable_attention":            f.Attention,
		"enable_skip_layer_norm":      f.SkipLayerNorm,
		"enable_embed_layer_norm":     f.EmbedLayerNorm,
		"enable_bias_skip_layer_norm": f.BiasSkipLayerNorm,
		"enable_bias_gelu":            f.BiasGelu,
		"enable_gelu_approximation":   f.GeluApproximation,
	}
}
