// Package corpus turns a documents directory or a JSONL file into text
// records for training and prompt building.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"doctune/internal/common/fsutil"
	"doctune/pkg/types"
)

// DocumentExtensions are the suffixes treated as documents.
var DocumentExtensions = []string{".txt", ".md"}

// Options controls directory scanning.
type Options struct {
	// Recursive descends into subdirectories.
	Recursive bool
	// FoldCase matches extensions case-insensitively (".MD" counts).
	FoldCase bool
}

// TrainingOptions is the scan used for fine-tuning datasets.
var TrainingOptions = Options{Recursive: true, FoldCase: true}

// PromptOptions is the scan used for system-prompt documents: top level
// only, exact extension match.
var PromptOptions = Options{}

// LoadDir reads every document under dir, ordered by path.
func LoadDir(dir string, opts Options) ([]types.Document, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	paths, err := scan(abs, opts)
	if err != nil {
		return nil, err
	}
	docs := make([]types.Document, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, types.Document{Name: filepath.Base(p), Path: p, Text: decodeUTF8(b)})
	}
	return docs, nil
}

func scan(root string, opts Options) ([]string, error) {
	var paths []string
	if !opts.Recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if isDocument(e.Name(), opts.FoldCase) {
				paths = append(paths, filepath.Join(root, e.Name()))
			}
		}
		return paths, nil
	}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isDocument(d.Name(), opts.FoldCase) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk dir: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func isDocument(name string, foldCase bool) bool {
	ext := filepath.Ext(name)
	// ".md" alone is a dotfile without an extension
	if ext == name {
		return false
	}
	if foldCase {
		ext = strings.ToLower(ext)
	}
	for _, want := range DocumentExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// decodeUTF8 drops invalid byte sequences and normalizes line endings to \n.
func decodeUTF8(b []byte) string {
	return newlines.Replace(string(bytes.ToValidUTF8(b, nil)))
}

// Records converts documents into dataset records.
func Records(docs []types.Document) []types.Record {
	recs := make([]types.Record, len(docs))
	for i, d := range docs {
		recs[i] = types.Record{Text: d.Text}
	}
	return recs
}

// LoadJSONL reads a line-delimited JSON file whose objects carry a "text"
// field. Blank lines are skipped; other fields are ignored.
func LoadJSONL(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []types.Record
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0
	for s.Scan() {
		line++
		raw := bytes.TrimSpace(s.Bytes())
		if len(raw) == 0 {
			continue
		}
		var row map[string]json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, &LineError{Path: path, Line: line, Err: err}
		}
		field, ok := row["text"]
		if !ok {
			return nil, &LineError{Path: path, Line: line, Err: errMissingText}
		}
		var text string
		if err := json.Unmarshal(field, &text); err != nil {
			return nil, &LineError{Path: path, Line: line, Err: errMissingText}
		}
		recs = append(recs, types.Record{Text: text})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

var errMissingText = errors.New(`missing string "text" field`)

// LineError locates a malformed JSONL line.
type LineError struct {
	Path string
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// Load builds the training dataset: a directory is scanned recursively for
// documents, anything else is read as JSONL.
func Load(path string) ([]types.Record, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if fsutil.IsDir(p) {
		docs, err := LoadDir(p, TrainingOptions)
		if err != nil {
			return nil, err
		}
		return Records(docs), nil
	}
	return LoadJSONL(p)
}
