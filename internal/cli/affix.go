package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/photoaffix/pkg/affix"
	"github.com/matzehuels/photoaffix/pkg/config"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// affixCommand creates the affix command, which stacks photos into one image.
func (c *CLI) affixCommand() *cobra.Command {
	var (
		input       inputFlags
		lf          layoutFlags
		interactive bool
		open        bool
	)

	cmd := &cobra.Command{
		Use:   "affix [photo...]",
		Short: "Stack two or more photos into one image",
		Long: `Stack two or more photos into one image.

Photos are placed in the order given, top to bottom (--direction vertical) or
left to right (--direction horizontal). When the full-size result would not
fit in memory, the largest power-of-two reduction that fits is used.

With --interactive a dialog shows the canvas size before anything is drawn
and lets you pick the scale, format and quality.`,
		Example: `  photoaffix affix a.jpg b.jpg c.jpg
  photoaffix affix --dir ~/Pictures -n 3 -d horizontal --spacing 8
  photoaffix affix -i -o strip.jpg a.jpg b.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, settings, err := lf.apply(cmd, cfg)
			if err != nil {
				return err
			}
			opts.Refresh = input.refresh
			photos, err := input.photos(args)
			if err != nil {
				return err
			}

			runner, err := c.newRunner(cfg)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			req := affixRequest{
				runner:      runner,
				settings:    settings,
				opts:        opts,
				interactive: interactive,
				open:        open,
			}
			return c.runAffix(cmd.Context(), req, photos)
		},
	}

	input.register(cmd.Flags())
	lf.register(cmd.Flags())
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose the output size in a dialog")
	cmd.Flags().BoolVar(&open, "open", false, "open the result in the default viewer")

	return cmd
}

// affixRequest bundles what runAffix needs.
type affixRequest struct {
	runner      affix.Stages
	settings    *config.Settings
	opts        pipeline.Options
	interactive bool
	open        bool
	opener      func(string) error

	// runModel runs the sizing dialog; nil runs it on the terminal.
	runModel func(context.Context, SizingModel) (SizingModel, error)
}

// runAffix drives one request through a coordinator and waits for its result.
func (c *CLI) runAffix(ctx context.Context, req affixRequest, photos []source.Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sw := startStopwatch(c.Logger)
	req.opts.Logger = c.Logger

	coord := affix.New(req.runner, affix.Options{
		Settings: req.settings,
		Base:     req.opts,
		Logger:   c.Logger,
	})
	defer coord.Close()

	view := &terminalView{
		ctx:    ctx,
		logger: c.Logger,
		answer: coord.SizeDetermined,
		auto:   affix.SizeChoice{Scale: req.opts.Scale},
		open:   req.open,
		opener: req.opener,
	}
	defer view.close()
	if req.interactive {
		view.dialog = c.sizingDialog(ctx, coord, req)
	}

	coord.Attach(view)
	coord.Process(photos)

	select {
	case res := <-coord.Results():
		sw.done("affix finished", "outcome", res.Outcome, "images", len(photos))
		return resultError(res)
	case <-ctx.Done():
		coord.Close()
		return ctx.Err()
	}
}

// errRearranged ends a sizing dialog whose direction was toggled. The
// coordinator plans again and opens a new dialog.
var errRearranged = stderrors.New("direction changed")

// sizingDialog returns a dialog that runs the bubbletea sizing model.
func (c *CLI) sizingDialog(ctx context.Context, coord *affix.Coordinator, req affixRequest) sizingDialog {
	run := req.runModel
	if run == nil {
		run = runSizingProgram
	}
	opts := req.opts
	return func(width, height int) (affix.SizeChoice, error) {
		plan, _ := coord.CurrentPlan()
		suggested := plan.Scale
		if opts.Scale > 0 {
			suggested = opts.Scale
		}
		model := NewSizingModel(width, height, suggested, opts.MinScale, plan.Format, plan.Quality)
		m, err := run(ctx, model)
		if err != nil {
			return affix.SizeChoice{}, err
		}
		if m.Rearrange {
			req.settings.SetDirection(req.settings.Direction().Flip())
			coord.Rearranged()
			return affix.SizeChoice{}, errRearranged
		}
		return m.Choice(), nil
	}
}

// runSizingProgram runs the sizing model on the terminal.
func runSizingProgram(ctx context.Context, model SizingModel) (SizingModel, error) {
	final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return model, err
	}
	return final.(SizingModel), nil
}

// resultError converts a coordinator result into the command's error. The
// view has already shown failures, so they are marked as reported.
func resultError(res affix.Result) error {
	switch res.Outcome {
	case affix.OutcomeDone:
		return nil
	case affix.OutcomeCancelled:
		return &reportedError{fmt.Errorf("%s: %w", res.Message, context.Canceled)}
	default:
		return &reportedError{errors.New(res.Code, "%s", res.Message)}
	}
}

// reportedError wraps an error that has already been shown to the user.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// Reported reports whether err has already been shown to the user.
func Reported(err error) bool {
	var r *reportedError
	return stderrors.As(err, &r)
}
