package export

import (
	"fmt"
	"maps"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Mode selects which export variant of a model family to describe.
type Mode int

const (
	// ModeDefault describes the cache-less graph.
	ModeDefault Mode = iota

	// ModeWithPast describes the graph with key/value cache tensors.
	ModeWithPast
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeWithPast:
		return "with-past"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Factory builds the description of one model family in the given mode.
type Factory func(model *ModelConfig, mode Mode) (Config, error)

var registeredFamilies = make(map[string]Factory)

// RegisterFamily adds a model family ("bert", "gpt2", ...) to the global
// registry, keyed by its config.json "model_type" name. Families register
// from an init function; registering the same name twice panics.
func RegisterFamily(family string, factory Factory) {
	if _, found := registeredFamilies[family]; found {
		exceptions.Panicf("export.RegisterFamily: model family %q registered twice", family)
	}
	registeredFamilies[family] = factory
}

// Families returns the sorted names of all registered model families.
func Families() []string {
	return slices.Sorted(maps.Keys(registeredFamilies))
}

// FamilyConfig builds the description of a registered model family around a
// model configuration. The result is validated: a family factory that
// returns a config without input or output tensors is an error here, not a
// panic later.
func FamilyConfig(family string, model *ModelConfig, mode Mode) (Config, error) {
	factory, found := registeredFamilies[family]
	if !found {
		return nil, errors.Errorf("model family %q is not registered (registered families: %v)", family, Families())
	}
	c, err := factory(model, mode)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to build export config for model family %q", family)
	}
	if err = Validate(c); err != nil {
		return nil, errors.WithMessagef(err, "model family %q built an incomplete export config", family)
	}
	klog.V(1).Infof("resolved model family %q in %s mode", family, mode)
	return c, nil
}

// ModelFamilyConfig resolves the family from the configuration's
// "model_type" field and builds its description.
func ModelFamilyConfig(model *ModelConfig, mode Mode) (Config, error) {
	family := model.ModelType()
	if family == "" {
		return nil, errors.Errorf("model config does not define %q, pass the family explicitly to FamilyConfig", "model_type")
	}
	return FamilyConfig(family, model, mode)
}
