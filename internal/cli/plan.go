package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
	"github.com/matzehuels/photoaffix/pkg/source"
)

// planCommand creates the plan command, a dry run of affix.
func (c *CLI) planCommand() *cobra.Command {
	var (
		input inputFlags
		lf    layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "plan [photo...]",
		Short: "Show the layout an affix run would use",
		Long: `Show the layout an affix run would use without decoding any pixels.

Only image headers are read. The plan lists where each photo lands on the
canvas, the chosen scale and the memory the composition would need.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, _, err := lf.apply(cmd, cfg)
			if err != nil {
				return err
			}
			photos, err := input.photos(args)
			if err != nil {
				return err
			}
			opts.URIs = source.URIs(photos)
			opts.Refresh = input.refresh
			opts.Logger = c.Logger

			runner, err := c.newRunner(cfg)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			return c.runPlan(cmd.Context(), runner, opts)
		},
	}

	input.register(cmd.Flags())
	lf.register(cmd.Flags())
	return cmd
}

func (c *CLI) runPlan(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) error {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	spinner := newSpinner(ctx, "Reading image headers...")
	spinner.Start()
	images, info, err := runner.InspectWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError("Inspect failed")
		return err
	}
	plan, err := runner.Plan(ctx, images, opts)
	if err != nil {
		spinner.StopWithError("No layout fits")
		return err
	}
	spinner.Stop()

	fmt.Println(planTable(images, plan).Render())
	printNewline()
	printKeyValue("canvas", fmt.Sprintf("%d × %d", plan.Width, plan.Height))
	printKeyValue("natural", fmt.Sprintf("%d × %d", plan.NaturalWidth, plan.NaturalHeight))
	printKeyValue("scale", strconv.FormatFloat(plan.Scale, 'g', -1, 64))
	printKeyValue("spacing", fmt.Sprintf("%d px", plan.ScaledSpacing()))
	printKeyValue("format", string(plan.Format))
	printKeyValue("peak", budget.FormatBytes(plan.PeakBytes))
	printKeyValue("budget", budget.FormatBytes(plan.Budget))
	printStats([]string{fmt.Sprintf("%d photos", len(images)), plan.Direction.String()}, cached(info))
	return nil
}

// planTable renders one row per photo with its placement on the canvas.
func planTable(images []source.SourceImage, plan layout.Plan) tableRenderer {
	t := newTable("#", "Photo", "Source", "Placed", "At")
	for i, img := range images {
		r := plan.Rect(i)
		t.Row(
			strconv.Itoa(i+1),
			filepath.Base(img.URI),
			fmt.Sprintf("%d × %d", img.DisplayWidth(), img.DisplayHeight()),
			fmt.Sprintf("%d × %d", r.Dx(), r.Dy()),
			fmt.Sprintf("%d, %d", r.Min.X, r.Min.Y),
		)
	}
	return t
}

// inspectCommand creates the inspect command, which prints display bounds.
func (c *CLI) inspectCommand() *cobra.Command {
	var input inputFlags

	cmd := &cobra.Command{
		Use:   "inspect [photo...]",
		Short: "Print the dimensions and orientation of photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			photos, err := input.photos(args)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cfg)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			opts := pipeline.Options{URIs: source.URIs(photos), Refresh: input.refresh, Logger: c.Logger}
			images, info, err := runner.InspectWithCacheInfo(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Println(inspectTable(images).Render())
			printStats([]string{fmt.Sprintf("%d photos", len(images))}, cached(info))
			return nil
		},
	}

	input.register(cmd.Flags())
	return cmd
}

func inspectTable(images []source.SourceImage) tableRenderer {
	t := newTable("#", "Photo", "Format", "Stored", "Orientation", "Decoded")
	for i, img := range images {
		t.Row(
			strconv.Itoa(i+1),
			filepath.Base(img.URI),
			img.Format,
			fmt.Sprintf("%d × %d", img.Width, img.Height),
			strconv.Itoa(int(img.Orientation)),
			budget.FormatBytes(img.DecodedBytes()),
		)
	}
	return t
}

// tableRenderer is the part of a lipgloss table the commands print.
type tableRenderer interface {
	Render() string
}

// cached reports whether every bound came from the cache.
func cached(info pipeline.CacheInfo) *bool {
	all := info.BoundsMisses == 0 && info.BoundsHits > 0
	return &all
}
