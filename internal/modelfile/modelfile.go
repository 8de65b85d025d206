// Package modelfile renders Ollama model-definition files.
package modelfile

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"doctune/internal/common/fsutil"
	"doctune/pkg/types"
)

const (
	promptHeader = "You are a helpful assistant trained with the following materials:\n"
	promptFooter = "\nUse this context to provide accurate, document-based responses."
	delimiter    = `"""`
)

// ErrDelimiterInContent is returned when text would close the SYSTEM block early.
var ErrDelimiterInContent = errors.New(`content contains """ delimiter`)

// Modelfile derives a named model from a base model.
type Modelfile struct {
	// From is a base model name (llama3) or a path to weights.
	From string
	// Adapter is an optional LoRA adapter directory or file.
	Adapter string
	// System is the system prompt; empty omits the SYSTEM block.
	System string
}

// SystemPrompt concatenates documents, in order, into the system prompt.
func SystemPrompt(docs []types.Document) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, d := range docs {
		fmt.Fprintf(&b, "\n\n# From %s\n%s\n", d.Name, d.Text)
	}
	b.WriteString(promptFooter)
	return b.String()
}

// FromDocuments builds a Modelfile whose system prompt embeds docs.
func FromDocuments(base string, docs []types.Document) *Modelfile {
	return &Modelfile{From: base, System: SystemPrompt(docs)}
}

// Validate checks the fields the runtime requires.
func (m *Modelfile) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return errors.New("modelfile: FROM is empty")
	}
	if strings.ContainsAny(m.From, "\r\n") || strings.ContainsAny(m.Adapter, "\r\n") {
		return errors.New("modelfile: FROM and ADAPTER must be single-line")
	}
	if strings.Contains(m.System, delimiter) {
		return fmt.Errorf("modelfile: SYSTEM %w", ErrDelimiterInContent)
	}
	return nil
}

// WriteTo renders the Modelfile to w.
func (m *Modelfile) WriteTo(w io.Writer) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", m.From)
	if m.Adapter != "" {
		fmt.Fprintf(&b, "ADAPTER %s\n", m.Adapter)
	}
	if m.System != "" {
		fmt.Fprintf(&b, "\nSYSTEM %s%s%s\n", delimiter, m.System, delimiter)
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// String renders the Modelfile, or "" when it is invalid.
func (m *Modelfile) String() string {
	var b strings.Builder
	if _, err := m.WriteTo(&b); err != nil {
		return ""
	}
	return b.String()
}

// Write atomically writes the Modelfile to path.
func (m *Modelfile) Write(path string) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		_, err := m.WriteTo(w)
		return err
	})
}

// PathFor is the conventional Modelfile location for a model name.
func PathFor(dir, modelName string) string {
	safe := strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(modelName)
	return filepath.Join(dir, safe+"_Modelfile")
}
