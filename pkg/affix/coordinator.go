package affix

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// resultBuffer bounds how many unread results are kept before new ones are
// dropped.
const resultBuffer = 32

// Options configures a Coordinator.
type Options struct {
	// Settings supplies direction and spacing; read at the start of every
	// planning pass.
	Settings Settings
	// Base holds format, quality, background, output location and memory
	// options applied to every request.
	Base   pipeline.Options
	Logger *log.Logger
}

// request is the loop-owned record of the active request.
type request struct {
	id     string
	uris   []string
	ctx    context.Context
	cancel context.CancelFunc

	// gen increments whenever a job for this request is replaced, so late
	// results of the replaced job can be recognised.
	gen       int
	cancelJob context.CancelFunc

	images []source.SourceImage
	plan   layout.Plan
	dialog SizingDialog
}

// report is a view notification that must not be lost.
type report func(View)

// Coordinator runs affix requests. Create it with New and release it with
// Close.
type Coordinator struct {
	stages   Stages
	settings Settings
	base     pipeline.Options
	logger   *log.Logger

	cmds    chan func()
	jobs    chan job
	results chan Result
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	// Owned by the loop goroutine.
	state   State
	view    View
	pending report
	req     *request
	queue   []job
	locked  bool
	loading bool
	dialogs uint64
}

// New creates a Coordinator and starts its goroutines.
func New(stages Stages, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	settings := opts.Settings
	if settings == nil {
		settings = fixedSettings{}
	}
	c := &Coordinator{
		stages:   stages,
		settings: settings,
		base:     opts.Base,
		logger:   logger,
		cmds:     make(chan func()),
		jobs:     make(chan job),
		results:  make(chan Result, resultBuffer),
		quit:     make(chan struct{}),
	}
	c.wg.Add(2)
	go c.loop()
	go c.work()
	return c
}

// Results returns the channel of terminal results. It is closed by Close.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// Process starts a request for photos, superseding any request in flight.
// Fewer than two photos are rejected with a VALIDATION_ERROR report.
func (c *Coordinator) Process(photos []source.Photo) {
	uris := source.URIs(photos)
	c.post(func() { c.process(uris) })
}

// SizeDetermined answers the sizing dialog of the active request. Choices for
// a dialog that is no longer open are dropped.
func (c *Coordinator) SizeDetermined(choice SizeChoice) {
	c.post(func() { c.sizeDetermined(choice) })
}

// Rearranged tells the coordinator that direction or spacing changed.
// A request waiting for size confirmation is planned again.
func (c *Coordinator) Rearranged() {
	c.post(c.rearranged)
}

// Attach connects v. A buffered terminal report is delivered first, then v
// is brought up to date with the current state.
func (c *Coordinator) Attach(v View) {
	c.post(func() { c.attach(v) })
}

// Detach disconnects the current view. Terminal reports are buffered until
// the next Attach.
func (c *Coordinator) Detach() {
	c.post(func() {
		c.view = nil
		c.locked = false
		c.loading = false
	})
}

// State returns the current state.
func (c *Coordinator) State() State {
	ch := make(chan State, 1)
	if !c.post(func() { ch <- c.state }) {
		return Idle
	}
	return <-ch
}

// CurrentPlan returns the plan of the active request, if one has been
// computed.
func (c *Coordinator) CurrentPlan() (layout.Plan, bool) {
	type reply struct {
		plan layout.Plan
		ok   bool
	}
	ch := make(chan reply, 1)
	ok := c.post(func() {
		if c.req == nil || c.req.plan.Width == 0 {
			ch <- reply{}
			return
		}
		ch <- reply{c.req.plan, true}
	})
	if !ok {
		return layout.Plan{}, false
	}
	r := <-ch
	return r.plan, r.ok
}

// Close cancels the request in flight, stops both goroutines and closes the
// Results channel. It is safe to call more than once.
func (c *Coordinator) Close() error {
	c.once.Do(func() {
		c.post(c.shutdown)
		close(c.quit)
		c.wg.Wait()
		close(c.results)
	})
	return nil
}

// post hands fn to the loop. It reports false once the coordinator is closed.
func (c *Coordinator) post(fn func()) bool {
	select {
	case c.cmds <- fn:
		return true
	case <-c.quit:
		return false
	}
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	for {
		var jobs chan job
		var next job
		if len(c.queue) > 0 {
			jobs, next = c.jobs, c.queue[0]
		}
		select {
		case fn := <-c.cmds:
			fn()
		case jobs <- next:
			c.queue[0] = nil
			c.queue = c.queue[1:]
		case <-c.quit:
			return
		}
	}
}

// =============================================================================
// Commands (loop goroutine)
// =============================================================================

func (c *Coordinator) process(uris []string) {
	if err := errors.ValidateImageCount(len(uris)); err != nil {
		c.logger.Warn("request rejected", "images", len(uris))
		c.report(func(v View) { v.ShowErrorDialog(errors.ErrCodeValidation, errors.UserMessage(err)) })
		c.emit(Result{Outcome: OutcomeFailed, Code: errors.ErrCodeValidation, Message: errors.UserMessage(err)})
		return
	}

	if c.req != nil {
		c.finish(Cancelled, Result{
			RequestID: c.req.id,
			Outcome:   OutcomeCancelled,
			Code:      errors.ErrCodeCancelled,
			Message:   "superseded by a newer request",
		}, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.req = &request{id: uuid.NewString(), uris: uris, ctx: ctx, cancel: cancel}
	c.logger.Info("request started", "request", c.req.id, "images", len(uris))
	c.startInspect()
}

func (c *Coordinator) sizeDetermined(choice SizeChoice) {
	if c.req == nil || c.state != AwaitingSizeConfirmation {
		c.logger.Debug("size choice ignored", "state", c.state)
		return
	}
	if choice.Dialog != c.req.dialog.ID {
		c.logger.Debug("stale size choice ignored", "dialog", choice.Dialog, "open", c.req.dialog.ID)
		return
	}
	if choice.Cancelled {
		c.finish(Cancelled, Result{
			RequestID: c.req.id,
			Outcome:   OutcomeCancelled,
			Code:      errors.ErrCodeCancelled,
			Message:   "sizing cancelled",
		}, nil)
		return
	}

	opts := c.requestOptions()
	opts.Scale = choiceScale(choice, c.req.plan)
	if choice.Format != "" {
		opts.Format = choice.Format
	}
	if choice.Quality != nil {
		opts.Quality = choice.Quality
	}

	c.transition(Composing)
	c.enqueue(func(ctx context.Context, id string, gen int) job {
		return &composeJob{c: c, ctx: ctx, id: id, gen: gen, images: c.req.images, opts: opts}
	})
}

func (c *Coordinator) rearranged() {
	if c.req == nil {
		return
	}
	switch c.state {
	case AwaitingSizeConfirmation, BoundsInspecting:
		c.logger.Debug("rearranged, planning again", "request", c.req.id)
		c.startInspect()
	}
}

func (c *Coordinator) attach(v View) {
	c.view = v
	c.locked = false
	c.loading = false
	if c.pending != nil {
		r := c.pending
		c.pending = nil
		r(v)
	}
	switch {
	case c.state.Busy():
		c.lock()
		c.setLoading(true)
	case c.state == AwaitingSizeConfirmation:
		c.lock()
		v.ShowImageSizingDialog(c.req.dialog)
	}
}

func (c *Coordinator) shutdown() {
	if c.req != nil {
		c.finish(Cancelled, Result{
			RequestID: c.req.id,
			Outcome:   OutcomeCancelled,
			Code:      errors.ErrCodeCancelled,
			Message:   "coordinator closed",
		}, nil)
	}
	c.queue = nil
}

// =============================================================================
// Job results (loop goroutine)
// =============================================================================

func (c *Coordinator) onPlanned(id string, gen int, images []source.SourceImage, plan layout.Plan, err error) {
	if !c.current(id, gen) {
		return
	}
	if err != nil {
		c.fail(err)
		return
	}
	c.dialogs++
	d := SizingDialog{ID: c.dialogs, NaturalWidth: plan.NaturalWidth, NaturalHeight: plan.NaturalHeight}
	c.req.images = images
	c.req.plan = plan
	c.req.dialog = d
	c.transition(AwaitingSizeConfirmation)
	c.notify(func(v View) { v.ShowImageSizingDialog(d) })
}

func (c *Coordinator) onProgress(id string, gen, done, total int) {
	if !c.current(id, gen) {
		return
	}
	c.notify(func(v View) {
		if pv, ok := v.(ProgressView); ok {
			pv.ShowProgress(done, total)
		}
	})
}

func (c *Coordinator) onEncoding(id string, gen int) {
	if c.current(id, gen) {
		c.transition(Encoding)
	}
}

func (c *Coordinator) onFinished(id string, gen int, output string, err error) {
	if !c.current(id, gen) {
		if output != "" {
			c.logger.Debug("discarding output of superseded request", "request", id, "path", output)
			if derr := encode.Discard(output); derr != nil {
				c.logger.Warn("could not discard stale output", "path", output, "err", derr)
			}
		}
		return
	}
	if err != nil {
		c.fail(err)
		return
	}
	c.finish(Done, Result{RequestID: id, Outcome: OutcomeDone, Output: output},
		func(v View) { v.LaunchViewer(output) })
}

// =============================================================================
// Helpers (loop goroutine)
// =============================================================================

func (c *Coordinator) current(id string, gen int) bool {
	return c.req != nil && c.req.id == id && c.req.gen == gen
}

func (c *Coordinator) startInspect() {
	c.transition(BoundsInspecting)
	opts := c.requestOptions()
	c.enqueue(func(ctx context.Context, id string, gen int) job {
		return &inspectJob{c: c, ctx: ctx, id: id, gen: gen, opts: opts}
	})
}

// enqueue replaces the request's current job with a new one.
func (c *Coordinator) enqueue(build func(ctx context.Context, id string, gen int) job) {
	r := c.req
	if r.cancelJob != nil {
		r.cancelJob()
	}
	r.gen++
	ctx, cancel := context.WithCancel(r.ctx)
	r.cancelJob = cancel
	c.queue = append(c.queue, build(ctx, r.id, r.gen))
}

// requestOptions snapshots settings into pipeline options for the active
// request.
func (c *Coordinator) requestOptions() pipeline.Options {
	opts := c.base
	opts.URIs = c.req.uris
	opts.Direction = c.settings.Direction()
	opts.Spacing = c.settings.Spacing()
	opts.Scale = 0
	opts.Progress = nil
	return opts
}

func (c *Coordinator) fail(err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	msg := errors.UserMessage(err)
	res := Result{RequestID: c.req.id, Outcome: OutcomeFailed, Code: code, Message: msg}

	switch code {
	case errors.ErrCodeCancelled:
		res.Outcome = OutcomeCancelled
		c.finish(Cancelled, res, nil)
	case errors.ErrCodeMemoryPressure:
		c.finish(Failed, res, func(v View) { v.ShowMemoryError() })
	default:
		c.finish(Failed, res, func(v View) { v.ShowErrorDialog(code, msg) })
	}
}

// finish moves the active request to a terminal state, delivers its report
// and result, and returns to Idle.
func (c *Coordinator) finish(terminal State, res Result, r report) {
	req := c.req
	req.cancel()
	c.queue = nil
	c.req = nil

	c.transition(terminal)
	if r != nil {
		c.report(r)
	}
	c.emit(res)
	c.logger.Info("request finished",
		"request", req.id,
		"outcome", res.Outcome,
		"code", res.Code)
	c.state = Idle
}

func (c *Coordinator) transition(to State) {
	if c.state != to {
		c.logger.Debug("state", "from", c.state, "to", to)
	}
	c.state = to

	switch {
	case to.Busy():
		c.lock()
		c.setLoading(true)
	case to == AwaitingSizeConfirmation:
		c.setLoading(false)
	default:
		c.setLoading(false)
		c.unlock()
	}
}

func (c *Coordinator) lock() {
	if c.view != nil && !c.locked {
		c.view.LockOrientation()
		c.locked = true
	}
}

func (c *Coordinator) unlock() {
	if c.view != nil && c.locked {
		c.view.UnlockOrientation()
		c.locked = false
	}
}

func (c *Coordinator) setLoading(on bool) {
	if c.view != nil && c.loading != on {
		c.view.ShowContentLoading(on)
		c.loading = on
	}
}

// notify delivers a transient notification; it is dropped while detached.
func (c *Coordinator) notify(fn func(View)) {
	if c.view != nil {
		fn(c.view)
	}
}

// report delivers a terminal report, buffering the latest one while detached.
func (c *Coordinator) report(r report) {
	if c.view != nil {
		r(c.view)
		return
	}
	c.pending = r
}

func (c *Coordinator) emit(res Result) {
	select {
	case c.results <- res:
	default:
		c.logger.Warn("result dropped, nobody is reading", "request", res.RequestID)
	}
}

// choiceScale converts a size choice into a forced scale; 0 keeps the
// planner's automatic choice.
func choiceScale(choice SizeChoice, plan layout.Plan) float64 {
	s := choice.Scale
	if s <= 0 && choice.Width > 0 && plan.NaturalWidth > 0 {
		s = float64(choice.Width) / float64(plan.NaturalWidth)
	}
	if s <= 0 && choice.Height > 0 && plan.NaturalHeight > 0 {
		s = float64(choice.Height) / float64(plan.NaturalHeight)
	}
	return min(s, 1)
}

// fixedSettings is used when no Settings are supplied.
type fixedSettings struct{}

func (fixedSettings) Direction() layout.Direction { return layout.Vertical }
func (fixedSettings) Spacing() int                { return 0 }
