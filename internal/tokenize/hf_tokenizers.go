//go:build tokenizers

package tokenize

import (
	"fmt"

	"github.com/daulet/tokenizers"
)

type hfTokenizer struct {
	tk *tokenizers.Tokenizer
}

// Open loads a tokenizer.json through the Rust tokenizers library.
func Open(path string) (Tokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("tokenizer load: %w", err)
	}
	return &hfTokenizer{tk: tk}, nil
}

func (h *hfTokenizer) Encode(text string) []uint32 {
	ids, _ := h.tk.Encode(text, true)
	return ids
}

func (h *hfTokenizer) Close() error { return h.tk.Close() }
