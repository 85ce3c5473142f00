// Package extract turns classified goal utterances into structured payloads.
//
// Rule-based parsing runs first. The model provider is a fallback for
// utterances the rules cannot complete, and its output is validated like any
// other untrusted input.
package extract

import "moneycoach/internal/llm"

type Extractor struct {
	llm *llm.Client
}

// New returns an Extractor. A nil client disables the model fallback.
func New(client *llm.Client) *Extractor {
	return &Extractor{llm: client}
}
