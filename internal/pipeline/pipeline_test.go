package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/ivlev/demark/internal/detect"
	"github.com/ivlev/demark/internal/inpaint"
)

// fakeInpainter paints the masked area solid and counts invocations.
type fakeInpainter struct {
	calls int
	fail  error
}

func (f *fakeInpainter) Inpaint(_ context.Context, region *image.RGBA, _ *image.Gray, _ inpaint.Config) (*image.RGBA, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}

	out := image.NewRGBA(image.Rect(0, 0, region.Bounds().Dx(), region.Bounds().Dy()))
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = 90
		out.Pix[i+1] = 90
		out.Pix[i+2] = 90
		out.Pix[i+3] = 255
	}
	return out, nil
}

func testArtifact(frameW, frameH int, bounds image.Rectangle) *Artifact {
	mask := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 4; y < bounds.Dy()-4; y++ {
		for x := 4; x < bounds.Dx()-4; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return &Artifact{
		Mask:   mask,
		Bounds: bounds,
		Frame:  image.Rect(0, 0, frameW, frameH),
	}
}

func defaultOptions() Options {
	return Options{
		CacheSize:            10,
		SimilarityThreshold:  3,
		KeyframeInterval:     5,
		SceneChangeThreshold: 50.0,
		Inpaint:              inpaint.DefaultConfig(),
	}
}

// gradFrame produces content with enough structure for stable perceptual
// hashing, shifted by phase so different phases differ visually.
func gradFrame(w, h int, phase int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*255/w + phase) % 256)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestFirstFrameAlwaysRegenerates(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	inp := &fakeInpainter{}
	p := NewProcessor(art, inp, defaultOptions())

	out := image.NewRGBA(image.Rect(0, 0, 120, 90))
	frame := gradFrame(120, 90, 0)

	if err := p.ProcessFrame(context.Background(), out, frame, 0); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if inp.calls != 1 {
		t.Errorf("inpainter calls = %d, want 1", inp.calls)
	}

	// Deep inside the mask the output carries regenerated content
	if got := out.RGBAAt(60, 50); got.R != 90 {
		t.Errorf("masked center = %v, want regenerated 90", got)
	}
	// Outside the region the frame is untouched
	want := frame.RGBAAt(5, 5)
	if got := out.RGBAAt(5, 5); got != want {
		t.Errorf("outside region = %v, want %v", got, want)
	}
}

func TestIdenticalKeyframesHitCache(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	inp := &fakeInpainter{}
	p := NewProcessor(art, inp, defaultOptions())

	out := image.NewRGBA(image.Rect(0, 0, 120, 90))
	frame := gradFrame(120, 90, 0)

	// Keyframes 0, 5, 10 with identical content: one regeneration, two
	// cache hits
	for _, idx := range []int{0, 5, 10} {
		if err := p.ProcessFrame(context.Background(), out, frame, idx); err != nil {
			t.Fatalf("frame %d: %v", idx, err)
		}
	}

	if inp.calls != 1 {
		t.Errorf("inpainter calls = %d, want 1 (cache should dedupe)", inp.calls)
	}
	if hits := p.cache.Stats().Hits; hits != 2 {
		t.Errorf("cache hits = %d, want 2", hits)
	}
}

func TestSkippedFramesReuseSnapshot(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	inp := &fakeInpainter{}
	p := NewProcessor(art, inp, defaultOptions())

	out := image.NewRGBA(image.Rect(0, 0, 120, 90))
	frame := gradFrame(120, 90, 0)

	for idx := 0; idx < 5; idx++ {
		if err := p.ProcessFrame(context.Background(), out, frame, idx); err != nil {
			t.Fatalf("frame %d: %v", idx, err)
		}
	}

	if inp.calls != 1 {
		t.Errorf("inpainter calls = %d, want 1 (frames 1-4 skip)", inp.calls)
	}
	if p.skipped != 4 {
		t.Errorf("skipped = %d, want 4", p.skipped)
	}
	if got := out.RGBAAt(60, 50); got.R != 90 {
		t.Errorf("skipped frame center = %v, want snapshot content", got)
	}
}

func TestSceneChangeBetweenKeyframesRegenerates(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	inp := &fakeInpainter{}
	p := NewProcessor(art, inp, defaultOptions())

	out := image.NewRGBA(image.Rect(0, 0, 120, 90))

	if err := p.ProcessFrame(context.Background(), out, gradFrame(120, 90, 0), 0); err != nil {
		t.Fatal(err)
	}
	// Frame 2 is not a keyframe but its content jumps far beyond the
	// scene-change threshold
	if err := p.ProcessFrame(context.Background(), out, gradFrame(120, 90, 128), 2); err != nil {
		t.Fatal(err)
	}

	if p.regenerated != 2 {
		t.Errorf("regenerated = %d, want 2 (scene change forces processing)", p.regenerated)
	}
}

func TestSkipWithoutSnapshotIsFatal(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	p := NewProcessor(art, &fakeInpainter{}, defaultOptions())

	out := image.NewRGBA(image.Rect(0, 0, 120, 90))

	// Frame 1 without ever processing frame 0: no keyframe, no reference,
	// no snapshot
	err := p.ProcessFrame(context.Background(), out, gradFrame(120, 90, 0), 1)
	if !errors.Is(err, ErrInternalConsistency) {
		t.Errorf("want ErrInternalConsistency, got %v", err)
	}
}

func TestMismatchedFrameRejected(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	p := NewProcessor(art, &fakeInpainter{}, defaultOptions())

	out := image.NewRGBA(image.Rect(0, 0, 64, 64))
	err := p.ProcessFrame(context.Background(), out, gradFrame(64, 64, 0), 0)
	if !errors.Is(err, ErrInvalidFrameData) {
		t.Errorf("want ErrInvalidFrameData, got %v", err)
	}
}

func TestInpainterFailureAborts(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	inp := &fakeInpainter{fail: inpaint.ErrService}
	p := NewProcessor(art, inp, defaultOptions())

	out := image.NewRGBA(image.Rect(0, 0, 120, 90))
	err := p.ProcessFrame(context.Background(), out, gradFrame(120, 90, 0), 0)
	if !errors.Is(err, inpaint.ErrService) {
		t.Errorf("want ErrService, got %v", err)
	}
	if inp.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", inp.calls)
	}
}

// fakeSource yields a fixed frame sequence.
type fakeSource struct {
	frames []*image.RGBA
	next   int
}

func (s *fakeSource) FrameCount() int         { return len(s.frames) }
func (s *fakeSource) FPS() float64            { return 25 }
func (s *fakeSource) Duration() float64       { return float64(len(s.frames)) / 25 }
func (s *fakeSource) Bounds() image.Rectangle { return s.frames[0].Bounds() }
func (s *fakeSource) Close() error            { return nil }

func (s *fakeSource) FrameAt(index int) (*image.RGBA, error) {
	return s.frames[index], nil
}

func (s *fakeSource) Next() (*image.RGBA, error) {
	if s.next >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// countWriter records how many frames reached the sink.
type countWriter struct {
	frames int
}

func (w *countWriter) WriteFrame(*image.RGBA) error {
	w.frames++
	return nil
}

func (w *countWriter) Close() error { return nil }

func TestRunProcessesWholeStream(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	inp := &fakeInpainter{}
	p := NewProcessor(art, inp, defaultOptions())

	var frames []*image.RGBA
	for i := 0; i < 12; i++ {
		frames = append(frames, gradFrame(120, 90, 0))
	}
	src := &fakeSource{frames: frames}
	w := &countWriter{}

	stats, err := p.Run(context.Background(), src, w)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if stats.Frames != 12 {
		t.Errorf("frames = %d, want 12", stats.Frames)
	}
	if w.frames != 12 {
		t.Errorf("written frames = %d, want 12", w.frames)
	}
	// Keyframes 0, 5, 10 regenerate (one real call plus cache hits), the
	// rest skip
	if stats.Regenerated != 3 {
		t.Errorf("regenerated = %d, want 3", stats.Regenerated)
	}
	if stats.Skipped != 9 {
		t.Errorf("skipped = %d, want 9", stats.Skipped)
	}
	if inp.calls != 1 {
		t.Errorf("inpainter calls = %d, want 1", inp.calls)
	}
}

func TestRunHonorsCancellationBetweenFrames(t *testing.T) {
	art := testArtifact(120, 90, image.Rect(40, 30, 80, 70))
	p := NewProcessor(art, &fakeInpainter{}, defaultOptions())

	src := &fakeSource{frames: []*image.RGBA{gradFrame(120, 90, 0), gradFrame(120, 90, 0)}}
	w := &countWriter{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, src, w)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, got %v", err)
	}
	if src.next != 0 {
		t.Error("no frame should be decoded after cancellation")
	}
}

func TestLocalizeBuildsArtifact(t *testing.T) {
	// Frames with a constant bright mark on dark background
	var frames []*image.RGBA
	for i := 0; i < 10; i++ {
		f := image.NewRGBA(image.Rect(0, 0, 100, 100))
		for y := 0; y < 100; y++ {
			for x := 0; x < 100; x++ {
				c := color.RGBA{R: 15, G: 15, B: 15, A: 255}
				if x >= 40 && x < 60 && y >= 40 && y < 55 {
					c = color.RGBA{R: 240, G: 240, B: 240, A: 255}
				}
				f.SetRGBA(x, y, c)
			}
		}
		frames = append(frames, f)
	}

	src := &fakeSource{frames: frames}
	art, err := Localize(src, image.Rect(20, 20, 80, 80), detect.NewVoter(), 10)
	if err != nil {
		t.Fatalf("Localize failed: %v", err)
	}

	if art.Frame != image.Rect(0, 0, 100, 100) {
		t.Errorf("frame geometry = %v", art.Frame)
	}
	if art.Mask.Bounds().Dx() != art.Bounds.Dx() || art.Mask.Bounds().Dy() != art.Bounds.Dy() {
		t.Errorf("mask %v does not match bounds %v", art.Mask.Bounds(), art.Bounds)
	}
	if !image.Pt(50, 47).In(art.Bounds) {
		t.Errorf("bounds %v miss the watermark center", art.Bounds)
	}

	if err := art.ValidateFrame(image.Rect(0, 0, 100, 100)); err != nil {
		t.Errorf("matching frame rejected: %v", err)
	}
	if err := art.ValidateFrame(image.Rect(0, 0, 200, 100)); !errors.Is(err, ErrInvalidFrameData) {
		t.Errorf("want ErrInvalidFrameData, got %v", err)
	}
}
