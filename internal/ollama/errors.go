package ollama

// runtimeNotFoundError signals that no ollama executable could be located.
type runtimeNotFoundError struct{ bin string }

func (e runtimeNotFoundError) Error() string {
	if e.bin == "" {
		return "ollama not found"
	}
	return "ollama not found: " + e.bin
}

// ErrRuntimeNotFound constructs a runtimeNotFoundError for bin.
func ErrRuntimeNotFound(bin string) error { return runtimeNotFoundError{bin: bin} }

// IsRuntimeNotFound reports whether err indicates a missing ollama binary.
func IsRuntimeNotFound(err error) bool {
	_, ok := err.(runtimeNotFoundError)
	return ok
}

// InstallHint is printed when the runtime is missing.
const InstallHint = "Ollama not found. Please install it from https://ollama.ai/download or use Docker."
