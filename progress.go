package main

import (
	"fmt"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"subjectivity_datagen/generator"
)

// progressBar renders accumulation progress. In size mode the bar tracks the
// corpus total against the target; otherwise it counts batches.
type progressBar struct {
	p      *mpb.Progress
	bar    *mpb.Bar
	bySize bool
}

func newProgressBar(name string, total int, bySize bool) *progressBar {
	p := mpb.New(mpb.WithWidth(60))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WCSyncSpace), "done!"),
		),
	)
	return &progressBar{p: p, bar: bar, bySize: bySize}
}

func (b *progressBar) Batch(ev generator.BatchEvent) {
	if !b.bySize {
		b.bar.Increment()
		return
	}
	cur := int64(ev.Total)
	if ev.Target > 0 && cur > int64(ev.Target) {
		cur = int64(ev.Target)
	}
	b.bar.SetCurrent(cur)
}

// Finish stops a bar that fell short of its total and waits for the final render.
func (b *progressBar) Finish() {
	if !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
}

func progressName(lang, mode string) string {
	return fmt.Sprintf("%s [%s]", lang, mode)
}
