//go:build !tokenizers

package tokenize

// Open reports ErrUnavailable; the trainer tokenizes raw text instead.
func Open(path string) (Tokenizer, error) { return nil, ErrUnavailable }
