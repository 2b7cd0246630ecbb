// Package export describes transformer models to an ONNX exporter: which
// named tensors the traced model consumes and produces (with their symbolic
// dynamic axes), which values must be overridden before tracing, whether the
// weights need the external data format, and how to synthesize the dummy
// inputs that drive the trace.
//
//   - Config: the description protocol one model family implements for one
//     export mode.
//   - BaseConfig / ConfigWithPast: embeddable bases covering the behavior
//     shared by all families, without and with key/value cache awareness.
//   - RegisterFamily / FamilyConfig: registry resolving a family name (the
//     config.json "model_type") to its description.
//   - UseExternalDataFormat / EffectiveAxisDimension: the two supporting
//     computations exporters call directly.
//
// The package only produces descriptions. Tracing, serialization and graph
// optimization belong to the exporter consuming them.
package export

import (
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// Overrides maps field names to the values the exporter must force. A nil
// Overrides means there is nothing to override. The maps are returned as
// data for the caller to apply, never applied here.
type Overrides map[string]any

// Config describes one model family, in one export mode, to the exporter.
//
// Inputs and Outputs are the family's responsibility; everything else comes
// from embedding BaseConfig (or ConfigWithPast). Implementations are
// immutable views over the ModelConfig they were constructed around.
type Config interface {
	// Inputs returns the input tensors of the traced model with their
	// dynamic axes.
	Inputs() AxisMap

	// Outputs returns the output tensors of the traced model with their
	// dynamic axes.
	Outputs() AxisMap

	// ValuesOverride returns forward-call arguments the exporter must set
	// while tracing, or nil if there are none.
	ValuesOverride() Overrides

	// DefaultOpset returns the ONNX opset version to export with.
	DefaultOpset() int

	// GenerateDummyInputs synthesizes the tensors used to trace the model,
	// driving tok to produce them.
	GenerateDummyInputs(tok Tokenizer, opts ...DummyInputOption) (DummyInputs, error)

	// ModelConfig returns the hyperparameter bag the description was built
	// from.
	ModelConfig() *ModelConfig
}

// BaseConfig implements the Config behavior shared by every model family.
// It must be embedded, not used on its own: Inputs and Outputs panic until
// the embedding family shadows them. Validate turns that panic into a
// construction-time error.
type BaseConfig struct {
	model *ModelConfig
}

// NewBaseConfig creates the embeddable base description around a model
// configuration. The configuration is held by reference and never mutated.
func NewBaseConfig(model *ModelConfig) BaseConfig {
	return BaseConfig{model: model}
}

// Inputs panics: every model family must describe its own input tensors.
func (c BaseConfig) Inputs() AxisMap {
	exceptions.Panicf("export.BaseConfig.Inputs: model family did not define its input tensors")
	return nil
}

// Outputs panics: every model family must describe its own output tensors.
func (c BaseConfig) Outputs() AxisMap {
	exceptions.Panicf("export.BaseConfig.Outputs: model family did not define its output tensors")
	return nil
}

// ValuesOverride returns the forward-call arguments to force while tracing.
// Models that define "use_cache" are traced with caching off: the cache path
// branches on runtime state, which breaks tracing. Models without the field
// have nothing to override.
func (c BaseConfig) ValuesOverride() Overrides {
	if c.model.Has(UseCacheKey) {
		return Overrides{UseCacheKey: false}
	}
	return nil
}

// DefaultOpset returns the ONNX opset version to export with.
func (c BaseConfig) DefaultOpset() int {
	return DefaultOpsetVersion
}

// ModelConfig returns the hyperparameter bag the description was built from.
func (c BaseConfig) ModelConfig() *ModelConfig {
	return c.model
}

// Validate checks that c implements the capabilities BaseConfig leaves
// abstract. A family that forgot to shadow Inputs or Outputs surfaces here
// as an error instead of a panic at export time; factories should call it
// before handing a Config out.
func Validate(c Config) error {
	err := exceptions.TryCatch[error](func() {
		numInputs := len(c.Inputs())
		numOutputs := len(c.Outputs())
		klog.V(2).Infof("validated export config: %d inputs, %d outputs", numInputs, numOutputs)
	})
	return err
}
