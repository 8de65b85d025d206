package finetune

import (
	"errors"
	"strings"
)

// adapterMissingError signals that the trainer exited cleanly but did not
// leave a usable adapter behind.
type adapterMissingError struct {
	dir  string
	file string
}

func (e adapterMissingError) Error() string {
	return "adapter missing in " + e.dir + ": " + e.file
}

// IsAdapterMissing reports whether err indicates an incomplete adapter directory.
func IsAdapterMissing(err error) bool {
	var e adapterMissingError
	return errors.As(err, &e)
}

// trainerError carries the last error message the trainer reported and the
// tail of its stderr.
type trainerError struct {
	msg    string
	stderr []string
	err    error
}

func (e trainerError) Error() string {
	s := "trainer failed: " + e.err.Error()
	if e.msg != "" {
		s = "trainer failed: " + e.msg + ": " + e.err.Error()
	}
	if len(e.stderr) > 0 {
		s += "\n  " + strings.Join(e.stderr, "\n  ")
	}
	return s
}

func (e trainerError) Unwrap() error { return e.err }
