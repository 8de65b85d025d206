package finetune

import (
	_ "embed"
	"io"
	"path/filepath"

	"doctune/internal/common/fsutil"
	"doctune/internal/config"
)

// TrainerScriptName is the file the bundled trainer is written to.
const TrainerScriptName = "doctune_trainer.py"

//go:embed doctune_trainer.py
var trainerScript []byte

// WriteTrainerScript writes the bundled trainer into dir and returns its path.
func WriteTrainerScript(dir string) (string, error) {
	p := filepath.Join(dir, TrainerScriptName)
	err := fsutil.WriteFileAtomic(p, 0o644, func(w io.Writer) error {
		_, err := w.Write(trainerScript)
		return err
	})
	return p, err
}

// ResolveCommand replaces config.TrainerScriptArg in argv with the bundled
// trainer written to dir. Commands without the placeholder are returned as is.
func ResolveCommand(argv []string, dir string) ([]string, error) {
	out := append([]string(nil), argv...)
	var script string
	for i, a := range out {
		if a != config.TrainerScriptArg {
			continue
		}
		if script == "" {
			p, err := WriteTrainerScript(dir)
			if err != nil {
				return nil, err
			}
			script = p
		}
		out[i] = script
	}
	return out, nil
}
