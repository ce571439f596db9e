package cli

import (
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/photoaffix/pkg/affix"
	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/config"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/layout"
	"github.com/matzehuels/photoaffix/pkg/pipeline"
	"github.com/matzehuels/photoaffix/pkg/source"
)

func writePNGs(t *testing.T, dir string, dims ...[2]int) []source.Photo {
	t.Helper()
	var paths []string
	for i, d := range dims {
		path := filepath.Join(dir, string(rune('a'+i))+".png")
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, d[0], d[1]))))
		require.NoError(t, f.Close())
		paths = append(paths, path)
	}
	return source.FromPaths(paths)
}

func testRequest(t *testing.T, c *CLI) affixRequest {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	runner.Estimator = budget.Static(budget.Unlimited)
	return affixRequest{
		runner:   runner,
		settings: config.NewSettings(layout.Vertical, 0, 4),
		opts:     pipeline.Options{OutputDir: t.TempDir()},
	}
}

func TestRunAffix(t *testing.T) {
	c := New(io.Discard, LogInfo)
	photos := writePNGs(t, t.TempDir(), [2]int{20, 10}, [2]int{30, 15})

	var opened []string
	req := testRequest(t, c)
	req.opts.Output = filepath.Join(req.opts.OutputDir, "strip.png")
	req.open = true
	req.opener = func(path string) error {
		opened = append(opened, path)
		return nil
	}

	require.NoError(t, c.runAffix(context.Background(), req, photos))

	f, err := os.Open(req.opts.Output)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Width)
	assert.Equal(t, 29, cfg.Height)
	assert.Equal(t, []string{req.opts.Output}, opened)
}

func TestRunAffixForcedScale(t *testing.T) {
	c := New(io.Discard, LogInfo)
	photos := writePNGs(t, t.TempDir(), [2]int{40, 20}, [2]int{40, 20})

	req := testRequest(t, c)
	req.settings = config.NewSettings(layout.Horizontal, 0, 0)
	req.opts.Scale = 0.5
	req.opts.Output = filepath.Join(req.opts.OutputDir, "half.png")
	require.NoError(t, c.runAffix(context.Background(), req, photos))

	f, err := os.Open(req.opts.Output)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
}

func TestRunAffixInteractiveDirectionToggle(t *testing.T) {
	c := New(io.Discard, LogInfo)
	photos := writePNGs(t, t.TempDir(), [2]int{20, 10}, [2]int{30, 15})

	var (
		mu    sync.Mutex
		shown [][2]int
	)
	req := testRequest(t, c)
	req.opts.Output = filepath.Join(req.opts.OutputDir, "toggled.png")
	req.interactive = true
	req.runModel = func(_ context.Context, m SizingModel) (SizingModel, error) {
		mu.Lock()
		defer mu.Unlock()
		shown = append(shown, [2]int{m.Width, m.Height})
		if len(shown) == 1 {
			m, _ = press(m, "d")
			return m, nil
		}
		m, _ = press(m, "enter")
		return m, nil
	}

	require.NoError(t, c.runAffix(context.Background(), req, photos))
	assert.Equal(t, layout.Horizontal, req.settings.Direction())

	mu.Lock()
	assert.Equal(t, [][2]int{{30, 29}, {50, 15}}, shown)
	mu.Unlock()

	f, err := os.Open(req.opts.Output)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 15, cfg.Height)
}

func TestTerminalViewRearrangeSkipsAnswer(t *testing.T) {
	got := make(chan affix.SizeChoice, 1)
	v := &terminalView{
		ctx:    context.Background(),
		logger: New(io.Discard, LogInfo).Logger,
		answer: func(c affix.SizeChoice) { got <- c },
		dialog: func(w, h int) (affix.SizeChoice, error) { return affix.SizeChoice{}, errRearranged },
	}
	v.ShowImageSizingDialog(affix.SizingDialog{ID: 1, NaturalWidth: 10, NaturalHeight: 10})
	select {
	case c := <-got:
		t.Fatalf("a rearranged dialog answered %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunAffixNeedsTwoPhotos(t *testing.T) {
	c := New(io.Discard, LogInfo)
	photos := writePNGs(t, t.TempDir(), [2]int{10, 10})

	err := c.runAffix(context.Background(), testRequest(t, c), photos)
	require.Error(t, err)
	assert.True(t, Reported(err))
	assert.True(t, errors.Is(err, errors.ErrCodeValidation))
}

func TestRunAffixCancelledContext(t *testing.T) {
	c := New(io.Discard, LogInfo)
	photos := writePNGs(t, t.TempDir(), [2]int{10, 10}, [2]int{10, 10})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.runAffix(ctx, testRequest(t, c), photos)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultError(t *testing.T) {
	assert.NoError(t, resultError(affix.Result{Outcome: affix.OutcomeDone}))

	err := resultError(affix.Result{Outcome: affix.OutcomeCancelled, Message: "sizing cancelled"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, Reported(err))

	err = resultError(affix.Result{Outcome: affix.OutcomeFailed, Code: errors.ErrCodeMemoryPressure, Message: "budget"})
	assert.True(t, errors.Is(err, errors.ErrCodeMemoryPressure))
	assert.False(t, Reported(context.Canceled))
}

func TestTerminalViewDialogAnswers(t *testing.T) {
	tests := []struct {
		name   string
		dialog sizingDialog
		want   affix.SizeChoice
	}{
		{"automatic", nil, affix.SizeChoice{Dialog: 3, Scale: 0.25}},
		{"chosen", func(w, h int) (affix.SizeChoice, error) {
			return affix.SizeChoice{Scale: 0.5}, nil
		}, affix.SizeChoice{Dialog: 3, Scale: 0.5}},
		{"dialog error cancels", func(w, h int) (affix.SizeChoice, error) {
			return affix.SizeChoice{}, io.ErrUnexpectedEOF
		}, affix.SizeChoice{Dialog: 3, Cancelled: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(chan affix.SizeChoice, 1)
			v := &terminalView{
				ctx:    context.Background(),
				logger: New(io.Discard, LogInfo).Logger,
				answer: func(c affix.SizeChoice) { got <- c },
				dialog: tt.dialog,
				auto:   affix.SizeChoice{Scale: 0.25},
			}
			v.ShowImageSizingDialog(affix.SizingDialog{ID: 3, NaturalWidth: 100, NaturalHeight: 200})
			select {
			case c := <-got:
				assert.Equal(t, tt.want, c)
			case <-time.After(time.Second):
				t.Fatal("no answer from the view")
			}
		})
	}
}

func TestTerminalViewLoading(t *testing.T) {
	v := &terminalView{ctx: context.Background(), logger: New(io.Discard, LogInfo).Logger}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(on bool) {
			defer wg.Done()
			v.ShowContentLoading(on)
			v.ShowProgress(1, 2)
		}(i%2 == 0)
	}
	wg.Wait()
	v.close()
	assert.Nil(t, v.spinner)
}
