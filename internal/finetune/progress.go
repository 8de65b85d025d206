package finetune

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"doctune/pkg/types"
)

// progress renders trainer step events as a terminal progress bar.
type progress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgress(out io.Writer) *progress { return &progress{out: out} }

func (p *progress) ensure(total int) {
	if p.bar != nil {
		if total > 0 && total != p.bar.GetMax() {
			p.bar.ChangeMax(total)
		}
		return
	}
	n := total
	if n <= 0 {
		n = -1
	}
	p.bar = progressbar.NewOptions(n,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription("training"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.out) }),
	)
}

func (p *progress) handle(ev types.TrainerEvent) {
	switch ev.Event {
	case EventStart:
		p.ensure(ev.TotalSteps)
	case EventStep:
		p.ensure(ev.TotalSteps)
		_ = p.bar.Set(ev.Step)
		if ev.Loss != 0 {
			p.bar.Describe(fmt.Sprintf("training loss=%.4f", ev.Loss))
		}
	case EventDone:
		if p.bar != nil {
			_ = p.bar.Finish()
		}
	}
}
