// Package tokenize turns dataset records into truncated token id sequences
// using a Hugging Face tokenizer.json.
package tokenize

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Tokenizer encodes text into token ids, special tokens included.
type Tokenizer interface {
	Encode(text string) []uint32
	Close() error
}

// ErrUnavailable is returned by Open in builds without tokenizer support.
var ErrUnavailable = errors.New("tokenizer support not compiled in (build with -tags tokenizers)")

// IsUnavailable reports whether err means native tokenization is missing.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// Files fetched from the model repository.
const (
	TokenizerFile       = "tokenizer.json"
	TokenizerConfigFile = "tokenizer_config.json"
)

// SpecialTokens holds the special tokens declared in tokenizer_config.json.
type SpecialTokens struct {
	Pad string
	EOS string
}

// PadToken is the pad token, falling back to EOS when none is declared.
func (s SpecialTokens) PadToken() string {
	if s.Pad != "" {
		return s.Pad
	}
	return s.EOS
}

// LoadSpecialTokens reads pad and eos tokens from a tokenizer_config.json.
// Tokens may be plain strings or AddedToken objects with a "content" key.
func LoadSpecialTokens(path string) (SpecialTokens, error) {
	var st SpecialTokens
	b, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	var raw struct {
		Pad json.RawMessage `json:"pad_token"`
		EOS json.RawMessage `json:"eos_token"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return st, fmt.Errorf("parse %s: %w", path, err)
	}
	if st.Pad, err = tokenContent(raw.Pad); err != nil {
		return st, fmt.Errorf("pad_token in %s: %w", path, err)
	}
	if st.EOS, err = tokenContent(raw.EOS); err != nil {
		return st, fmt.Errorf("eos_token in %s: %w", path, err)
	}
	return st, nil
}

func tokenContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	return obj.Content, nil
}
