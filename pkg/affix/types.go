package affix

import (
	"context"
	"image"

	"github.com/matzehuels/photoaffix/pkg/compose"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// State is a coordinator lifecycle state.
type State int

const (
	Idle State = iota
	BoundsInspecting
	AwaitingSizeConfirmation
	Composing
	Encoding
	Done
	Failed
	Cancelled
)

var stateNames = [...]string{
	Idle:                     "idle",
	BoundsInspecting:         "bounds-inspecting",
	AwaitingSizeConfirmation: "awaiting-size-confirmation",
	Composing:                "composing",
	Encoding:                 "encoding",
	Done:                     "done",
	Failed:                   "failed",
	Cancelled:                "cancelled",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Busy reports whether the state has work in flight.
func (s State) Busy() bool {
	return s == BoundsInspecting || s == Composing || s == Encoding
}

// View is the user-facing surface the coordinator drives. Calls are made
// from the coordinator goroutine: they must return quickly and must not call
// back into the Coordinator synchronously.
type View interface {
	ShowContentLoading(loading bool)
	LaunchViewer(path string)
	LockOrientation()
	UnlockOrientation()
	ShowErrorDialog(code errors.Code, message string)
	ShowMemoryError()
	// ShowImageSizingDialog asks the user to pick an output size. The answer
	// arrives through Coordinator.SizeDetermined, carrying d.ID.
	ShowImageSizingDialog(d SizingDialog)
}

// SizingDialog identifies one sizing question. Every plan opens a dialog with
// a new ID; answers carrying any other ID are ignored.
type SizingDialog struct {
	ID            uint64
	NaturalWidth  int
	NaturalHeight int
}

// Answer returns choice addressed to d.
func (d SizingDialog) Answer(choice SizeChoice) SizeChoice {
	choice.Dialog = d.ID
	return choice
}

// ProgressView is optionally implemented by views that show composition
// progress.
type ProgressView interface {
	ShowProgress(done, total int)
}

// Settings supplies the stacking direction and spacing.
type Settings interface {
	Direction() layout.Direction
	Spacing() int
}

// SizeChoice is the answer to the sizing dialog. Scale wins over Width and
// Height; a zero Scale with a zero Width keeps the planner's choice. Empty
// Format and nil Quality keep the configured values.
type SizeChoice struct {
	Dialog    uint64 // ID of the dialog being answered
	Scale     float64
	Width     int
	Height    int
	Format    encode.Format
	Quality   *int
	Cancelled bool
}

// Outcome is how a request ended.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeFailed
	OutcomeCancelled
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	default:
		return "cancelled"
	}
}

// Result is emitted once per request when it reaches a terminal state.
// Requests rejected before they start (fewer than two photos) carry an
// empty RequestID.
type Result struct {
	RequestID string
	Outcome   Outcome
	Output    string
	Code      errors.Code
	Message   string
}

// Stages is the pipeline the coordinator drives. *pipeline.Runner
// implements it.
type Stages interface {
	Inspect(ctx context.Context, opts pipeline.Options) ([]source.SourceImage, error)
	Plan(ctx context.Context, images []source.SourceImage, opts pipeline.Options) (layout.Plan, error)
	Compose(ctx context.Context, images []source.SourceImage, plan layout.Plan, opts pipeline.Options) (*image.NRGBA, compose.Stats, error)
	Encode(ctx context.Context, canvas image.Image, plan layout.Plan, opts pipeline.Options) (string, error)
}

var _ Stages = (*pipeline.Runner)(nil)
