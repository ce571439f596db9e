package layout

import (
	"context"
	"image"
	"testing"

	"github.com/matzehuels/photoaffix/pkg/budget"
	"github.com/matzehuels/photoaffix/pkg/encode"
	"github.com/matzehuels/photoaffix/pkg/errors"
	"github.com/matzehuels/photoaffix/pkg/source"
)

func img(w, h int) source.SourceImage {
	return source.SourceImage{URI: "mem", Width: w, Height: h, Orientation: source.OrientationNormal, Format: "png"}
}

func tallPair() []source.SourceImage {
	return []source.SourceImage{img(1000, 2000), img(1000, 3000)}
}

func TestComputeUnconstrained(t *testing.T) {
	p, err := Compute(tallPair(), Options{Direction: Vertical, Spacing: 20, Budget: budget.Unlimited})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if p.Width != 1000 || p.Height != 5020 {
		t.Errorf("canvas = %dx%d, want 1000x5020", p.Width, p.Height)
	}
	if p.Scale != 1 {
		t.Errorf("scale = %g, want 1", p.Scale)
	}
	want := []image.Point{{0, 0}, {0, 2020}}
	for i, o := range p.Offsets {
		if o != want[i] {
			t.Errorf("offset[%d] = %v, want %v", i, o, want[i])
		}
	}
}

func TestComputeBudgetForcesHalfScale(t *testing.T) {
	// scale 1 peaks at 32,080,000 bytes, scale 1/2 at 17,020,000
	p, err := Compute(tallPair(), Options{Direction: Vertical, Spacing: 20, Budget: 20_000_000})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if p.Scale != 0.5 {
		t.Errorf("scale = %g, want 0.5", p.Scale)
	}
	if p.Width != 500 || p.Height != 2510 {
		t.Errorf("canvas = %dx%d, want 500x2510", p.Width, p.Height)
	}
	if p.Offsets[0].Y != 0 || p.Offsets[1].Y != 1010 {
		t.Errorf("offsets = %v, want y=0 and y=1010", p.Offsets)
	}
	if p.NaturalWidth != 1000 || p.NaturalHeight != 5020 {
		t.Errorf("natural = %dx%d, want 1000x5020", p.NaturalWidth, p.NaturalHeight)
	}
	if p.PeakBytes != 17_020_000 {
		t.Errorf("peak = %d, want 17020000", p.PeakBytes)
	}
}

func TestComputeValidation(t *testing.T) {
	tests := []struct {
		name   string
		images []source.SourceImage
		opts   Options
		code   errors.Code
	}{
		{"single image", []source.SourceImage{img(10, 10)}, Options{Budget: budget.Unlimited}, errors.ErrCodeValidation},
		{"no images", nil, Options{Budget: budget.Unlimited}, errors.ErrCodeValidation},
		{"negative spacing", tallPair(), Options{Spacing: -1, Budget: budget.Unlimited}, errors.ErrCodeValidation},
		{"quality too high", tallPair(), Options{Quality: QualityOf(101), Budget: budget.Unlimited}, errors.ErrCodeValidation},
		{"scale above one", tallPair(), Options{Scale: 2, Budget: budget.Unlimited}, errors.ErrCodeValidation},
		{"unknown format", tallPair(), Options{Format: "gif", Budget: budget.Unlimited}, errors.ErrCodeInvalidFormat},
		{"nothing fits", tallPair(), Options{Budget: 1000}, errors.ErrCodeLayout},
		{"forced scale too big", tallPair(), Options{Scale: 1, Budget: 20_000_000}, errors.ErrCodeLayout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.images, tt.opts)
			if !errors.Is(err, tt.code) {
				t.Errorf("Compute() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestComputeForcedScale(t *testing.T) {
	p, err := Compute(tallPair(), Options{Spacing: 20, Scale: 0.25, Budget: budget.Unlimited})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if p.Scale != 0.25 || p.Width != 250 || p.Height != 1255 {
		t.Errorf("plan = %gx (%dx%d), want 0.25x (250x1255)", p.Scale, p.Width, p.Height)
	}
	if p.ScaledSpacing() != 5 {
		t.Errorf("scaled spacing = %d, want 5", p.ScaledSpacing())
	}
	if got, want := p.Offsets[1].Y, p.Sizes[0].Y+p.ScaledSpacing(); got != want {
		t.Errorf("second image at y=%d, want %d", got, want)
	}
}

func TestComputeHorizontal(t *testing.T) {
	images := []source.SourceImage{img(300, 200), img(100, 400), img(200, 100)}
	p, err := Compute(images, Options{Direction: Horizontal, Spacing: 10, Budget: budget.Unlimited})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if p.Width != 620 || p.Height != 400 {
		t.Errorf("canvas = %dx%d, want 620x400", p.Width, p.Height)
	}
	want := []image.Point{{0, 0}, {310, 0}, {420, 0}}
	for i, o := range p.Offsets {
		if o != want[i] {
			t.Errorf("offset[%d] = %v, want %v", i, o, want[i])
		}
	}
}

func TestComputeUsesDisplayOrientation(t *testing.T) {
	rotated := img(2000, 1000)
	rotated.Orientation = source.OrientationRotate270
	images := []source.SourceImage{rotated, img(1000, 1000)}

	p, err := Compute(images, Options{Direction: Vertical, Budget: budget.Unlimited})
	if err != nil {
		t.Fatalf("Compute() error: %v", err)
	}
	if p.Width != 1000 || p.Height != 3000 {
		t.Errorf("canvas = %dx%d, want 1000x3000", p.Width, p.Height)
	}
	if p.Sizes[0] != image.Pt(1000, 2000) {
		t.Errorf("size[0] = %v, want (1000,2000)", p.Sizes[0])
	}
}

func TestComputeDefaults(t *testing.T) {
	p, err := Compute(tallPair(), Options{Budget: budget.Unlimited})
	if err != nil {
		t.Fatal(err)
	}
	if p.Format != encode.PNG {
		t.Errorf("format = %q, want png", p.Format)
	}
	if p.Quality != DefaultQuality {
		t.Errorf("quality = %d, want %d", p.Quality, DefaultQuality)
	}
}

func TestComputeKeepsZeroQuality(t *testing.T) {
	p, err := Compute(tallPair(), Options{Format: encode.JPEG, Quality: QualityOf(0), Budget: budget.Unlimited})
	if err != nil {
		t.Fatal(err)
	}
	if p.Quality != 0 {
		t.Errorf("quality = %d, want 0", p.Quality)
	}
}

// Invariants that must hold for every plan: the canvas covers every image,
// images never overlap, and offsets increase along the stack axis.
func TestPlanInvariants(t *testing.T) {
	sets := [][]source.SourceImage{
		tallPair(),
		{img(333, 777), img(1, 1), img(4000, 3000), img(1234, 567)},
		{img(17, 5), img(5, 17)},
	}
	budgets := []int64{budget.Unlimited, 50_000_000, 5_000_000}

	for _, dir := range []Direction{Vertical, Horizontal} {
		for _, images := range sets {
			for _, b := range budgets {
				p, err := Compute(images, Options{Direction: dir, Spacing: 15, Budget: b})
				if errors.Is(err, errors.ErrCodeLayout) {
					continue
				}
				if err != nil {
					t.Fatalf("Compute() error: %v", err)
				}
				checkInvariants(t, p)
			}
		}
	}
}

func checkInvariants(t *testing.T, p Plan) {
	t.Helper()
	canvas := image.Rect(0, 0, p.Width, p.Height)
	for i := range p.Offsets {
		r := p.Rect(i)
		if !r.In(canvas) {
			t.Errorf("%s: image %d rect %v outside canvas %v", p.Direction, i, r, canvas)
		}
		if i == 0 {
			continue
		}
		prev := p.Rect(i - 1)
		if r.Overlaps(prev) {
			t.Errorf("%s: image %d overlaps image %d", p.Direction, i, i-1)
		}
		if p.Direction == Vertical && r.Min.Y <= prev.Min.Y {
			t.Errorf("vertical offsets not increasing: %v then %v", prev.Min, r.Min)
		}
		if p.Direction == Horizontal && r.Min.X <= prev.Min.X {
			t.Errorf("horizontal offsets not increasing: %v then %v", prev.Min, r.Min)
		}
	}
	if p.PeakBytes > p.Budget {
		t.Errorf("peak %d exceeds budget %d", p.PeakBytes, p.Budget)
	}
}

func TestScaleMonotonicInBudget(t *testing.T) {
	prev := 0.0
	for b := int64(13_000_000); b <= 40_000_000; b += 500_000 {
		p, err := Compute(tallPair(), Options{Spacing: 20, Budget: b})
		if errors.Is(err, errors.ErrCodeLayout) {
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		if p.Scale < prev {
			t.Fatalf("budget %d chose scale %g, smaller than %g for a lower budget", b, p.Scale, prev)
		}
		prev = p.Scale
	}
	if prev != 1 {
		t.Errorf("largest budget chose scale %g, want 1", prev)
	}
}

func TestComputeDeterministic(t *testing.T) {
	opts := Options{Spacing: 7, Budget: 19_000_000}
	a, errA := Compute(tallPair(), opts)
	b, errB := Compute(tallPair(), opts)
	if errA != nil || errB != nil {
		t.Fatalf("Compute() errors: %v, %v", errA, errB)
	}
	if a.Scale != b.Scale || a.Width != b.Width || a.Height != b.Height {
		t.Errorf("plans differ: %+v vs %+v", a, b)
	}
	for i := range a.Offsets {
		if a.Offsets[i] != b.Offsets[i] {
			t.Errorf("offset[%d] differs: %v vs %v", i, a.Offsets[i], b.Offsets[i])
		}
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates(1.0 / 8)
	want := []float64{1, 0.5, 0.25, 0.125}
	if len(got) != len(want) {
		t.Fatalf("Candidates() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidates()[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	if n := len(Candidates(0)); n != 5 {
		t.Errorf("default candidates = %d, want 5", n)
	}
}

func TestPlannerUsesEstimator(t *testing.T) {
	p, err := NewPlanner(budget.Static(20_000_000), 0).Plan(context.Background(), tallPair(), Options{Spacing: 20})
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if p.Scale != 0.5 || p.Budget != 20_000_000 {
		t.Errorf("plan scale=%g budget=%d, want 0.5 and 20000000", p.Scale, p.Budget)
	}
}

func TestPlannerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPlanner(nil, 0).Plan(ctx, tallPair(), Options{})
	if !errors.Is(err, errors.ErrCodeCancelled) {
		t.Errorf("Plan() error = %v, want %s", err, errors.ErrCodeCancelled)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"vertical", Vertical, false},
		{"", Vertical, false},
		{"H", Horizontal, false},
		{"horizontal", Horizontal, false},
		{"diagonal", Vertical, true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDirectionFlip(t *testing.T) {
	if Vertical.Flip() != Horizontal || Horizontal.Flip() != Vertical {
		t.Error("Flip should swap vertical and horizontal")
	}
}
