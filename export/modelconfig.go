package export

import (
	"encoding/json"
	"os"

	"github.com/gomlx/go-huggingface/hub"
	"github.com/pkg/errors"
)

// ConfigJSONName is the file holding the hyperparameter bag in a HuggingFace
// model repository.
const ConfigJSONName = "config.json"

// UseCacheKey is the model configuration field controlling the key/value
// cache path of generation-capable models. It is the only field this package
// interprets; everything else in a ModelConfig is opaque to it.
const UseCacheKey = "use_cache"

// ModelConfig is a read-only view over a model's hyperparameter bag, as found
// in a HuggingFace "config.json". Fields are probed by key, never assumed to
// exist: model families differ both in which fields they define and in what
// they call them.
type ModelConfig struct {
	fields map[string]any
}

// NewModelConfig wraps already-decoded configuration fields. The map is held
// by reference and must not be mutated while the config is in use.
func NewModelConfig(fields map[string]any) *ModelConfig {
	return &ModelConfig{fields: fields}
}

// ParseModelConfig parses the JSON contents of a config.json file.
func ParseModelConfig(contents []byte) (*ModelConfig, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(contents, &fields); err != nil {
		return nil, errors.Wrap(err, "failed to parse model config JSON")
	}
	return &ModelConfig{fields: fields}, nil
}

// ReadModelConfigFile reads and parses a config.json file.
func ReadModelConfigFile(filePath string) (*ModelConfig, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read model config file in %s", filePath)
	}
	return ParseModelConfig(contents)
}

// DownloadModelConfig downloads "config.json" from the given HuggingFace
// repository and parses it.
func DownloadModelConfig(repo *hub.Repo) (*ModelConfig, error) {
	localFile, err := repo.DownloadFile(ConfigJSONName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %q", ConfigJSONName)
	}
	return ReadModelConfigFile(localFile)
}

// Has reports whether the configuration defines key at all.
func (c *ModelConfig) Has(key string) bool {
	if c == nil {
		return false
	}
	_, found := c.fields[key]
	return found
}

// GetBool returns the boolean value of key. ok is false if the key is absent
// or holds a non-boolean.
func (c *ModelConfig) GetBool(key string) (value, ok bool) {
	if c == nil {
		return false, false
	}
	v, found := c.fields[key]
	if !found {
		return false, false
	}
	value, ok = v.(bool)
	return
}

// GetInt returns the integer value of key. JSON numbers decode as float64
// and are truncated; ok is false if the key is absent or not a number.
func (c *ModelConfig) GetInt(key string) (int, bool) {
	if c == nil {
		return 0, false
	}
	switch n := c.fields[key].(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// GetIntAny returns the value of the first listed key that is defined as a
// number. Model families name the same hyperparameter differently
// (e.g. "num_hidden_layers", "n_layer", "num_layers").
func (c *ModelConfig) GetIntAny(keys ...string) (int, bool) {
	for _, key := range keys {
		if v, ok := c.GetInt(key); ok {
			return v, true
		}
	}
	return 0, false
}

// GetFloat returns the numeric value of key as a float64.
func (c *ModelConfig) GetFloat(key string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	switch n := c.fields[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// GetString returns the string value of key.
func (c *ModelConfig) GetString(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, found := c.fields[key]
	if !found {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ModelType returns the "model_type" field ("bert", "gpt2", ...), or "" if
// the configuration doesn't carry one. It is the key families register
// themselves under.
func (c *ModelConfig) ModelType() string {
	modelType, _ := c.GetString("model_type")
	return modelType
}
