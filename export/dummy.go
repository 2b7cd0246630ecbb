package export

import (
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"k8s.io/klog/v2"
)

// DummyInputs holds the synthetic tensors used to trace a model, keyed by
// input tensor name.
type DummyInputs map[string]*tensors.Tensor

// dummyInputOptions collects the optional arguments of GenerateDummyInputs.
type dummyInputOptions struct {
	batchSize int
	seqLength int
	isPair    bool
	framework Framework
}

// DummyInputOption is an optional argument to Config.GenerateDummyInputs.
type DummyInputOption func(*dummyInputOptions)

// WithBatchSize requests a concrete batch size. Non-positive values (the
// default) mark the batch axis dynamic, traced with DefaultFixedBatch
// samples.
func WithBatchSize(batchSize int) DummyInputOption {
	return func(o *dummyInputOptions) { o.batchSize = batchSize }
}

// WithSeqLength requests a concrete total sequence length, special tokens
// included. Non-positive values (the default) mark the sequence axis
// dynamic, traced with DefaultFixedSequence tokens.
func WithSeqLength(seqLength int) DummyInputOption {
	return func(o *dummyInputOptions) { o.seqLength = seqLength }
}

// WithPair marks the dummy inputs as sentence pairs, so the tokenizer
// reserves room for the extra separator tokens a pair encoding inserts.
func WithPair(isPair bool) DummyInputOption {
	return func(o *dummyInputOptions) { o.isPair = isPair }
}

// WithFramework selects the tensor representation the tokenizer must
// produce. Defaults to FrameworkGoMLX.
func WithFramework(framework Framework) DummyInputOption {
	return func(o *dummyInputOptions) { o.framework = framework }
}

func newDummyInputOptions(opts []DummyInputOption) *dummyInputOptions {
	o := &dummyInputOptions{
		batchSize: -1,
		seqLength: -1,
		framework: FrameworkGoMLX,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GenerateDummyInputs synthesizes the tensors used to trace the model.
//
// Axis lengths resolve through EffectiveAxisDimension: unrequested axes get
// the fixed defaults (DefaultFixedBatch samples of DefaultFixedSequence
// tokens), and the sequence length leaves room for the special tokens the
// tokenizer reports it will insert. The placeholder text is the tokenizer's
// unknown token repeated seqLength times with no separator between
// repetitions. Tokenizer failures propagate unchanged.
func (c BaseConfig) GenerateDummyInputs(tok Tokenizer, opts ...DummyInputOption) (DummyInputs, error) {
	o := newDummyInputOptions(opts)

	batchSize := EffectiveAxisDimension(o.batchSize, DefaultFixedBatch, 0)
	tokensToAdd := tok.NumSpecialTokensToAdd(o.isPair)
	seqLength := EffectiveAxisDimension(o.seqLength, DefaultFixedSequence, tokensToAdd)
	klog.V(1).Infof("generating dummy inputs: batch=%d, sequence=%d (%d special tokens reserved), pair=%v",
		batchSize, seqLength, tokensToAdd, o.isPair)

	text := strings.Repeat(tok.UnknownToken(), seqLength)
	batch := make([]string, batchSize)
	for i := range batch {
		batch[i] = text
	}

	return tok.EncodeBatch(batch, o.framework)
}
