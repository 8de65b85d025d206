//go:build unix

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama records argv and fails the given subcommand.
func fakeOllama(t *testing.T, failOn string) (bin, calls string) {
	t.Helper()
	dir := t.TempDir()
	calls = filepath.Join(dir, "calls.log")
	script := `#!/bin/sh
echo "$*" >> "` + calls + `"
if [ "$1" = "run" ]; then echo "answer for: $3"; fi
if [ "$1" = "` + failOn + `" ]; then exit 1; fi
exit 0
`
	bin = filepath.Join(dir, "ollama")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin, calls
}

func docsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("Beta notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Alpha notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.TXT"), []byte("ignored"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "d.txt"), []byte("ignored"), 0o644))
	return dir
}

func testSettings(bin string) (*Settings, *bytes.Buffer) {
	var out bytes.Buffer
	s := newSettings(&out, &bytes.Buffer{})
	s.Config.Ollama.Bin = bin
	return s, &out
}

func TestRunOllamaCreatesAndRuns(t *testing.T) {
	bin, calls := fakeOllama(t, "")
	s, out := testSettings(bin)
	dir := t.TempDir()
	o := OllamaOptions{Base: "llama3", Name: "docs-llama", DocsDir: docsDir(t), Prompt: "Summarize the training data.", Dir: dir, MetricsPath: filepath.Join(dir, "m.prom")}
	require.NoError(t, runOllama(context.Background(), s, o))

	mfPath := filepath.Join(dir, "docs-llama_Modelfile")
	b, err := os.ReadFile(mfPath)
	require.NoError(t, err)
	want := "FROM llama3\n\nSYSTEM \"\"\"You are a helpful assistant trained with the following materials:\n" +
		"\n\n# From a.txt\nAlpha notes\n" +
		"\n\n# From b.md\nBeta notes\n" +
		"\nUse this context to provide accurate, document-based responses.\"\"\"\n"
	assert.Equal(t, want, string(b))

	log, err := os.ReadFile(calls)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"create docs-llama -f " + mfPath,
		"run docs-llama Summarize the training data.",
	}, strings.Split(strings.TrimSpace(string(log)), "\n"))

	s2 := out.String()
	assert.Contains(t, s2, "[+] Modelfile created at "+mfPath)
	assert.Contains(t, s2, "[+] New model 'docs-llama' created from base 'llama3'.")
	assert.Contains(t, s2, "answer for: Summarize the training data.")

	prom, err := os.ReadFile(o.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `doctune_ollama_commands_total{command="ollama",outcome="ok"`)
}

func TestRunOllamaNoRun(t *testing.T) {
	bin, calls := fakeOllama(t, "")
	s, _ := testSettings(bin)
	o := OllamaOptions{Base: "llama3", Name: "n", DocsDir: docsDir(t), NoRun: true, Dir: t.TempDir()}
	require.NoError(t, runOllama(context.Background(), s, o))
	log, err := os.ReadFile(calls)
	require.NoError(t, err)
	assert.NotContains(t, string(log), "run ")
}

func TestRunOllamaRunFailureIsNotFatal(t *testing.T) {
	bin, _ := fakeOllama(t, "run")
	s, _ := testSettings(bin)
	o := OllamaOptions{Base: "llama3", Name: "n", DocsDir: docsDir(t), Prompt: "p", Dir: t.TempDir()}
	assert.NoError(t, runOllama(context.Background(), s, o))
}

func TestRunOllamaCreateFailure(t *testing.T) {
	bin, _ := fakeOllama(t, "create")
	s, out := testSettings(bin)
	o := OllamaOptions{Base: "llama3", Name: "n", DocsDir: docsDir(t), Dir: t.TempDir()}
	err := runOllama(context.Background(), s, o)
	require.Error(t, err)
	assert.NotContains(t, out.String(), "New model")
}

func TestRunOllamaMissingRuntime(t *testing.T) {
	s, out := testSettings(filepath.Join(t.TempDir(), "no-ollama"))
	o := OllamaOptions{Base: "llama3", Name: "n", DocsDir: docsDir(t), Dir: t.TempDir()}
	err := runOllama(context.Background(), s, o)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Ollama not found")
}

func TestRunOllamaRejectsDelimiter(t *testing.T) {
	bin, calls := fakeOllama(t, "")
	s, _ := testSettings(bin)
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "x.txt"), []byte(`say """hi"""`), 0o644))
	o := OllamaOptions{Base: "llama3", Name: "n", DocsDir: docs, Dir: t.TempDir()}
	err := runOllama(context.Background(), s, o)
	require.Error(t, err)
	assert.NoFileExists(t, calls)
}

func TestRunOllamaMissingDocs(t *testing.T) {
	s, _ := testSettings("ollama")
	err := runOllama(context.Background(), s, OllamaOptions{Base: "b", Name: "n", DocsDir: filepath.Join(t.TempDir(), "nope"), Dir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load documents")
}
