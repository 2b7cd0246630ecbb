package export

import (
	"strings"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenizer scripts the Tokenizer collaborator: it records what the
// generator asks for and answers like a word-level tokenizer whose only
// vocabulary entry is the unknown token.
type fakeTokenizer struct {
	unk           string
	specialSingle int
	specialPair   int
	encodeErr     error

	gotTexts     []string
	gotFramework Framework
	gotPair      bool
}

func (f *fakeTokenizer) UnknownToken() string { return f.unk }

func (f *fakeTokenizer) NumSpecialTokensToAdd(pair bool) int {
	f.gotPair = pair
	if pair {
		return f.specialPair
	}
	return f.specialSingle
}

func (f *fakeTokenizer) EncodeBatch(texts []string, framework Framework) (DummyInputs, error) {
	f.gotTexts = texts
	f.gotFramework = framework
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}

	specials := f.specialSingle
	if f.gotPair {
		specials = f.specialPair
	}
	seqLength := specials
	if len(texts) > 0 {
		seqLength += strings.Count(texts[0], f.unk)
	}
	inputs := make(DummyInputs, 3)
	for _, name := range []string{"input_ids", "attention_mask", "token_type_ids"} {
		flat := make([]int64, len(texts)*seqLength)
		inputs[name] = tensors.FromFlatDataAndDimensions(flat, len(texts), seqLength)
	}
	return inputs, nil
}

// TestGenerateDummyInputs tests the trace-input synthesis algorithm around
// a scripted tokenizer.
func TestGenerateDummyInputs(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "[UNK]"}
		config := newBertLikeConfig(NewModelConfig(nil))
		inputs, err := config.GenerateDummyInputs(tok)
		require.NoError(t, err)

		require.Len(t, tok.gotTexts, 2)
		for _, text := range tok.gotTexts {
			require.Equal(t, strings.Repeat("[UNK]", 8), text)
		}
		assert.Equal(t, FrameworkGoMLX, tok.gotFramework)
		assert.False(t, tok.gotPair)

		require.Contains(t, inputs, "input_ids")
		assert.Equal(t, []int{2, 8}, inputs["input_ids"].Shape().Dimensions)
	})

	t.Run("PlaceholderHasNoSeparators", func(t *testing.T) {
		// The placeholder is one string of unknown tokens run together,
		// "[UNK][UNK]...", not eight space-separated tokens. Model families
		// are calibrated against this exact text; keep it verbatim.
		tok := &fakeTokenizer{unk: "[UNK]"}
		config := newBertLikeConfig(NewModelConfig(nil))
		_, err := config.GenerateDummyInputs(tok)
		require.NoError(t, err)
		require.NotContains(t, tok.gotTexts[0], " ")
		require.Equal(t, "[UNK][UNK][UNK][UNK][UNK][UNK][UNK][UNK]", tok.gotTexts[0])
	})

	t.Run("SpecialTokensReserveRoom", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "[UNK]", specialSingle: 2, specialPair: 3}
		config := newBertLikeConfig(NewModelConfig(nil))
		inputs, err := config.GenerateDummyInputs(tok)
		require.NoError(t, err)

		// 8 total minus the 2 specials the tokenizer will add itself.
		require.Equal(t, strings.Repeat("[UNK]", 6), tok.gotTexts[0])
		// After encoding the sequence is back at the requested total.
		assert.Equal(t, []int{2, 8}, inputs["input_ids"].Shape().Dimensions)
	})

	t.Run("PairReservation", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "[UNK]", specialSingle: 2, specialPair: 3}
		config := newBertLikeConfig(NewModelConfig(nil))
		_, err := config.GenerateDummyInputs(tok, WithPair(true))
		require.NoError(t, err)
		require.True(t, tok.gotPair)
		require.Equal(t, strings.Repeat("[UNK]", 5), tok.gotTexts[0])
	})

	t.Run("ExplicitSizes", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "<unk>", specialSingle: 2}
		config := newBertLikeConfig(NewModelConfig(nil))
		inputs, err := config.GenerateDummyInputs(tok, WithBatchSize(3), WithSeqLength(5))
		require.NoError(t, err)
		require.Len(t, tok.gotTexts, 3)
		require.Equal(t, strings.Repeat("<unk>", 3), tok.gotTexts[0])
		assert.Equal(t, []int{3, 5}, inputs["input_ids"].Shape().Dimensions)
	})

	t.Run("FrameworkForwarded", func(t *testing.T) {
		tok := &fakeTokenizer{unk: "[UNK]"}
		config := newBertLikeConfig(NewModelConfig(nil))
		_, err := config.GenerateDummyInputs(tok, WithFramework(Framework(7)))
		require.NoError(t, err)
		require.Equal(t, Framework(7), tok.gotFramework)
	})

	t.Run("TokenizerErrorPropagatesUnchanged", func(t *testing.T) {
		tokenizerErr := errors.New("tokenizer failure")
		tok := &fakeTokenizer{unk: "[UNK]", encodeErr: tokenizerErr}
		config := newBertLikeConfig(NewModelConfig(nil))
		_, err := config.GenerateDummyInputs(tok)
		require.Error(t, err)
		require.Equal(t, tokenizerErr, err)
	})
}
