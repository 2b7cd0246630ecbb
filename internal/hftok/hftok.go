// Package hftok extracts export-relevant metadata from HuggingFace
// "tokenizer.json" files: the unknown token and the number of special tokens
// the post-processor inserts around a single sentence or a sentence pair.
// The Rust tokenizer bindings consume the same file but don't expose either.
package hftok

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Info is the metadata extracted from a tokenizer.json file.
type Info struct {
	// UnknownToken is the out-of-vocabulary token ("[UNK]", "<unk>"), or ""
	// for tokenizers without one (plain BPE models).
	UnknownToken string

	// SingleSpecialTokens is the number of special tokens the post-processor
	// inserts around a single sentence, e.g. 2 for BERT's [CLS] ... [SEP].
	SingleSpecialTokens int

	// PairSpecialTokens is the number inserted around a sentence pair,
	// e.g. 3 for BERT's [CLS] ... [SEP] ... [SEP].
	PairSpecialTokens int
}

// rawTokenizer mirrors the parts of tokenizer.json this package reads.
type rawTokenizer struct {
	Model struct {
		UnkToken string `json:"unk_token"`
	} `json:"model"`
	PostProcessor json.RawMessage `json:"post_processor"`
}

// rawPostProcessor covers every post-processor family: TemplateProcessing
// carries Single/Pair templates, Sequence nests further processors, the
// Bert/Roberta processors are fully determined by their type.
type rawPostProcessor struct {
	Type       string            `json:"type"`
	Single     []json.RawMessage `json:"single"`
	Pair       []json.RawMessage `json:"pair"`
	Processors []json.RawMessage `json:"processors"`
}

// Read parses the contents of a tokenizer.json file.
func Read(contents []byte) (*Info, error) {
	var raw rawTokenizer
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse tokenizer.json")
	}
	single, pair, err := specialTokenCounts(raw.PostProcessor)
	if err != nil {
		return nil, err
	}
	return &Info{
		UnknownToken:        raw.Model.UnkToken,
		SingleSpecialTokens: single,
		PairSpecialTokens:   pair,
	}, nil
}

// ReadFile reads and parses a tokenizer.json file.
func ReadFile(filePath string) (*Info, error) {
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer file in %s", filePath)
	}
	return Read(contents)
}

// specialTokenCounts returns how many special tokens the given
// post-processor inserts for single-sentence and pair encodings. Unknown
// post-processor types insert none.
func specialTokenCounts(raw json.RawMessage) (single, pair int, err error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, 0, nil
	}
	var pp rawPostProcessor
	if err = json.Unmarshal(raw, &pp); err != nil {
		return 0, 0, errors.Wrap(err, "failed to parse tokenizer post_processor")
	}
	switch pp.Type {
	case "TemplateProcessing":
		return countSpecialPieces(pp.Single), countSpecialPieces(pp.Pair), nil
	case "BertProcessing":
		// [CLS] A [SEP] and [CLS] A [SEP] B [SEP].
		return 2, 3, nil
	case "RobertaProcessing":
		// <s> A </s> and <s> A </s> </s> B </s>.
		return 2, 4, nil
	case "Sequence":
		for _, sub := range pp.Processors {
			var s, p int
			s, p, err = specialTokenCounts(sub)
			if err != nil {
				return 0, 0, err
			}
			single += s
			pair += p
		}
		return single, pair, nil
	}
	return 0, 0, nil
}

// countSpecialPieces counts the SpecialToken entries of a TemplateProcessing
// template. The other entries are Sequence references ("A", "B") and don't
// add tokens.
func countSpecialPieces(pieces []json.RawMessage) int {
	count := 0
	for _, piece := range pieces {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(piece, &entry); err != nil {
			continue
		}
		if _, found := entry["SpecialToken"]; found {
			count++
		}
	}
	return count
}
