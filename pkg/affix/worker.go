package affix

import (
	"context"

	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// job is a unit of work for the worker goroutine.
type job interface {
	run()
}

// work executes jobs one at a time until the coordinator closes.
func (c *Coordinator) work() {
	defer c.wg.Done()
	for {
		select {
		case j := <-c.jobs:
			j.run()
		case <-c.quit:
			return
		}
	}
}

// inspectJob reads bounds and computes the automatic plan.
type inspectJob struct {
	c    *Coordinator
	ctx  context.Context
	id   string
	gen  int
	opts pipeline.Options
}

func (j *inspectJob) run() {
	var (
		images []source.SourceImage
		plan   layout.Plan
		err    error
	)
	images, err = j.c.stages.Inspect(j.ctx, j.opts)
	if err == nil {
		plan, err = j.c.stages.Plan(j.ctx, images, j.opts)
	}
	j.c.post(func() { j.c.onPlanned(j.id, j.gen, images, plan, err) })
}

// composeJob plans with the confirmed size, composes and encodes.
type composeJob struct {
	c      *Coordinator
	ctx    context.Context
	id     string
	gen    int
	images []source.SourceImage
	opts   pipeline.Options
}

func (j *composeJob) run() {
	output, err := j.execute()
	if !j.c.post(func() { j.c.onFinished(j.id, j.gen, output, err) }) && output != "" {
		// The coordinator closed before it could take ownership of the file.
		_ = encode.Discard(output)
	}
}

func (j *composeJob) execute() (string, error) {
	c := j.c
	plan, err := c.stages.Plan(j.ctx, j.images, j.opts)
	if err != nil {
		return "", err
	}

	opts := j.opts
	opts.Progress = func(done, total int) {
		c.post(func() { c.onProgress(j.id, j.gen, done, total) })
	}
	canvas, _, err := c.stages.Compose(j.ctx, j.images, plan, opts)
	if err != nil {
		return "", err
	}

	c.post(func() { c.onEncoding(j.id, j.gen) })
	return c.stages.Encode(j.ctx, canvas, plan, opts)
}
