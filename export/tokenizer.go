package export

import (
	"fmt"

	dtok "github.com/daulet/tokenizers"
	"github.com/gomlx/go-huggingface/hub"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/gomlx/onnx-export/internal/hftok"
)

// TokenizerJSONName is the tokenizer definition file in a HuggingFace model
// repository.
const TokenizerJSONName = "tokenizer.json"

// Framework tags the tensor representation dummy inputs are requested in.
// The currency of this package is gomlx tensors; the hint exists so that
// tokenizer implementations backing other runtimes can refuse a
// representation they cannot produce instead of silently producing the
// wrong one.
type Framework int

const (
	// FrameworkGoMLX requests gomlx tensors, the only representation the
	// built-in tokenizer produces.
	FrameworkGoMLX Framework = iota
)

// String implements fmt.Stringer.
func (f Framework) String() string {
	if f == FrameworkGoMLX {
		return "gomlx"
	}
	return fmt.Sprintf("Framework(%d)", int(f))
}

// Tokenizer is the text capability dummy-input generation is built around.
// The generator needs the unknown token (its placeholder text), the number
// of special tokens an encoding inserts (to keep sequence axes at the
// requested total), and batch encoding into named tensors.
type Tokenizer interface {
	// UnknownToken returns the out-of-vocabulary placeholder token,
	// e.g. "[UNK]", or "" for tokenizers without one.
	UnknownToken() string

	// NumSpecialTokensToAdd returns how many special tokens encoding adds
	// around a single sentence, or around a sentence pair if pair is true.
	NumSpecialTokensToAdd(pair bool) int

	// EncodeBatch tokenizes texts into named tensors ("input_ids",
	// "attention_mask", ...) in the requested framework representation,
	// padding all rows to the longest one. Unsupported frameworks must be
	// rejected with an error.
	EncodeBatch(texts []string, framework Framework) (DummyInputs, error)
}

// HFTokenizer adapts a HuggingFace tokenizer, through the Rust bindings of
// github.com/daulet/tokenizers, to the Tokenizer interface. The metadata the
// bindings don't expose (unknown token, special-token counts) is read from
// the tokenizer.json file itself.
type HFTokenizer struct {
	tok  *dtok.Tokenizer
	info *hftok.Info
}

// NewHFTokenizer opens the tokenizer defined by a "tokenizer.json" file.
// Close must be called to release the underlying Rust tokenizer.
func NewHFTokenizer(tokenizerJSONPath string) (*HFTokenizer, error) {
	info, err := hftok.ReadFile(tokenizerJSONPath)
	if err != nil {
		return nil, err
	}
	tok, err := dtok.FromFile(tokenizerJSONPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tokenizer from %s", tokenizerJSONPath)
	}
	return &HFTokenizer{tok: tok, info: info}, nil
}

// DownloadHFTokenizer downloads "tokenizer.json" from the given HuggingFace
// repository and opens it.
func DownloadHFTokenizer(repo *hub.Repo) (*HFTokenizer, error) {
	localFile, err := repo.DownloadFile(TokenizerJSONName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to download %q", TokenizerJSONName)
	}
	return NewHFTokenizer(localFile)
}

// Close releases the underlying Rust tokenizer.
func (t *HFTokenizer) Close() error {
	return t.tok.Close()
}

// UnknownToken implements Tokenizer.
func (t *HFTokenizer) UnknownToken() string {
	return t.info.UnknownToken
}

// NumSpecialTokensToAdd implements Tokenizer.
func (t *HFTokenizer) NumSpecialTokensToAdd(pair bool) int {
	if pair {
		return t.info.PairSpecialTokens
	}
	return t.info.SingleSpecialTokens
}

// EncodeBatch implements Tokenizer. It returns int64 tensors "input_ids",
// "attention_mask" and "token_type_ids", each shaped [batch, longest row].
// Shorter rows are zero-padded, matching the attention-mask convention.
func (t *HFTokenizer) EncodeBatch(texts []string, framework Framework) (DummyInputs, error) {
	if framework != FrameworkGoMLX {
		return nil, errors.Errorf("unsupported framework %s for dummy inputs, only %s tensors are available", framework, FrameworkGoMLX)
	}
	encodings := make([]dtok.Encoding, len(texts))
	longest := 0
	for i, text := range texts {
		encodings[i] = t.tok.EncodeWithOptions(text, true,
			dtok.WithReturnTypeIDs(),
			dtok.WithReturnAttentionMask(),
		)
		longest = max(longest, len(encodings[i].IDs))
	}

	batchSize := len(texts)
	inputs := make(DummyInputs, 3)
	for _, tensor := range []struct {
		name string
		row  func(e *dtok.Encoding) []uint32
	}{
		{"input_ids", func(e *dtok.Encoding) []uint32 { return e.IDs }},
		{"attention_mask", func(e *dtok.Encoding) []uint32 { return e.AttentionMask }},
		{"token_type_ids", func(e *dtok.Encoding) []uint32 { return e.TypeIDs }},
	} {
		flat := make([]int64, batchSize*longest)
		for i := range encodings {
			row := flat[i*longest : (i+1)*longest]
			for j, id := range tensor.row(&encodings[i]) {
				row[j] = int64(id)
			}
		}
		inputs[tensor.name] = tensors.FromFlatDataAndDimensions(flat, batchSize, longest)
	}
	return inputs, nil
}
