package prompt

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

const elision = "\n[...]\n"

// Budget caps the number of message tokens placed into a classifier prompt.
// Over-long messages keep their head and tail, where crisis statements tend
// to sit. A nil *Budget leaves text untouched.
type Budget struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
}

// NewBudget selects the tokenizer for model, falling back to cl100k_base for
// models tiktoken does not know.
func NewBudget(model string, maxTokens int) (*Budget, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Budget{tokenizer: enc, maxTokens: maxTokens}, nil
}

func (b *Budget) Count(text string) int {
	if b == nil {
		return 0
	}
	return len(b.tokenizer.Encode(text, nil, nil))
}

// Truncate returns text unchanged when it fits, otherwise the first and
// last halves of the budget joined by an elision marker.
func (b *Budget) Truncate(text string) string {
	if b == nil || b.maxTokens <= 0 {
		return text
	}
	tokens := b.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= b.maxTokens {
		return text
	}
	head := b.maxTokens / 2
	tail := b.maxTokens - head
	var sb strings.Builder
	sb.WriteString(b.tokenizer.Decode(tokens[:head]))
	sb.WriteString(elision)
	sb.WriteString(b.tokenizer.Decode(tokens[len(tokens)-tail:]))
	return sb.String()
}
