package detection_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.viam.com/test"
	"gocv.io/x/gocv"

	"dualvision-worker-go/internal/models"
	"dualvision-worker-go/internal/services/detection"
	"dualvision-worker-go/internal/testutils/inject"
)

func newFrame(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestGuardClampsResults(t *testing.T) {
	d := inject.NewDetector(models.SourceLearned, models.Detection{
		BBox:       models.BBox{X1: -10, Y1: -10, X2: 500, Y2: 500},
		Confidence: 0.8,
		ClassLabel: "person",
		Source:     models.SourceLearned,
	})
	g := detection.NewGuard(d, detection.GuardOptions{Timeout: time.Second, Retries: 1})

	dets, err := g.Detect(context.Background(), newFrame(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 1)
	test.That(t, dets[0].BBox, test.ShouldResemble, models.BBox{X1: 0, Y1: 0, X2: 159, Y2: 119})
	test.That(t, g.Kind(), test.ShouldEqual, models.SourceLearned)
}

func TestGuardUnavailable(t *testing.T) {
	var called atomic.Int32
	d := inject.NewDetector(models.SourceCascade)
	d.AvailableFunc = func() bool { return false }
	d.DetectFunc = func(context.Context, gocv.Mat) ([]models.Detection, error) {
		called.Add(1)
		return nil, nil
	}
	g := detection.NewGuard(d, detection.GuardOptions{})

	dets, err := g.Detect(context.Background(), newFrame(t))
	test.That(t, errors.Is(err, detection.ErrUnavailable), test.ShouldBeTrue)
	test.That(t, dets, test.ShouldNotBeNil)
	test.That(t, dets, test.ShouldBeEmpty)
	test.That(t, called.Load(), test.ShouldEqual, int32(0))
}

func TestGuardRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	d := inject.NewDetector(models.SourceLearned)
	d.DetectFunc = func(context.Context, gocv.Mat) ([]models.Detection, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("flaky")
		}
		return []models.Detection{{BBox: models.BBox{X1: 1, Y1: 1, X2: 5, Y2: 5}, Source: models.SourceLearned}}, nil
	}
	g := detection.NewGuard(d, detection.GuardOptions{Timeout: time.Second, Retries: 1})

	dets, err := g.Detect(context.Background(), newFrame(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldHaveLength, 1)
	test.That(t, calls.Load(), test.ShouldEqual, int32(2))
}

func TestGuardGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	d := inject.NewDetector(models.SourceLearned)
	d.DetectFunc = func(context.Context, gocv.Mat) ([]models.Detection, error) {
		calls.Add(1)
		return nil, boom
	}
	g := detection.NewGuard(d, detection.GuardOptions{Timeout: time.Second, Retries: 1})

	dets, err := g.Detect(context.Background(), newFrame(t))
	test.That(t, errors.Is(err, boom), test.ShouldBeTrue)
	test.That(t, dets, test.ShouldBeEmpty)
	test.That(t, calls.Load(), test.ShouldEqual, int32(2))

	total, failed := g.Stats()
	test.That(t, total, test.ShouldEqual, uint64(1))
	test.That(t, failed, test.ShouldEqual, uint64(1))
}

func TestGuardRecoversPanic(t *testing.T) {
	d := inject.NewDetector(models.SourceCascade)
	d.DetectFunc = func(context.Context, gocv.Mat) ([]models.Detection, error) {
		panic("model exploded")
	}
	g := detection.NewGuard(d, detection.GuardOptions{Timeout: time.Second})

	dets, err := g.Detect(context.Background(), newFrame(t))
	test.That(t, errors.Is(err, detection.ErrPanic), test.ShouldBeTrue)
	test.That(t, dets, test.ShouldBeEmpty)
	test.That(t, g.Busy(), test.ShouldBeFalse)
}

func TestGuardTimeoutBlocksNewCalls(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	d := inject.NewDetector(models.SourceLearned)
	d.DetectFunc = func(context.Context, gocv.Mat) ([]models.Detection, error) {
		if calls.Add(1) == 1 {
			<-release
		}
		return []models.Detection{}, nil
	}
	g := detection.NewGuard(d, detection.GuardOptions{Timeout: 20 * time.Millisecond, Retries: 1})
	frame := newFrame(t)

	_, err := g.Detect(context.Background(), frame)
	test.That(t, errors.Is(err, detection.ErrTimeout), test.ShouldBeTrue)
	test.That(t, calls.Load(), test.ShouldEqual, int32(1))
	test.That(t, g.Busy(), test.ShouldBeTrue)

	_, err = g.Detect(context.Background(), frame)
	test.That(t, errors.Is(err, detection.ErrBusy), test.ShouldBeTrue)
	test.That(t, calls.Load(), test.ShouldEqual, int32(1))

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for g.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	test.That(t, g.Busy(), test.ShouldBeFalse)

	_, err = g.Detect(context.Background(), frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls.Load(), test.ShouldEqual, int32(2))
}

// lockedDetector takes the same mutex in Available and Detect, like the
// gocv-backed detectors used to.
func lockedDetector(release <-chan struct{}) *inject.Detector {
	var mu sync.Mutex
	d := inject.NewDetector(models.SourceLearned)
	d.AvailableFunc = func() bool {
		mu.Lock()
		defer mu.Unlock()
		return true
	}
	d.DetectFunc = func(context.Context, gocv.Mat) ([]models.Detection, error) {
		mu.Lock()
		defer mu.Unlock()
		<-release
		return []models.Detection{}, nil
	}
	return d
}

func TestGuardHungCallDoesNotBlockNextFrame(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	g := detection.NewGuard(lockedDetector(release), detection.GuardOptions{Timeout: 20 * time.Millisecond})
	frame := newFrame(t)

	_, err := g.Detect(context.Background(), frame)
	test.That(t, errors.Is(err, detection.ErrTimeout), test.ShouldBeTrue)

	done := make(chan error, 1)
	go func() {
		_, err := g.Detect(context.Background(), frame)
		done <- err
	}()
	select {
	case err := <-done:
		test.That(t, errors.Is(err, detection.ErrBusy), test.ShouldBeTrue)
	case <-time.After(time.Second):
		t.Fatal("second Detect blocked behind the hung call")
	}

	avail := make(chan bool, 1)
	go func() { avail <- g.Available() }()
	select {
	case ok := <-avail:
		test.That(t, ok, test.ShouldBeTrue)
	case <-time.After(time.Second):
		t.Fatal("Available blocked behind the hung call")
	}
}

func TestGuardEmptyFrame(t *testing.T) {
	d := inject.NewDetector(models.SourceLearned, models.Detection{})
	g := detection.NewGuard(d, detection.GuardOptions{})
	empty := gocv.NewMat()
	defer empty.Close()

	dets, err := g.Detect(context.Background(), empty)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dets, test.ShouldBeEmpty)
}

func TestGuardClonesFrame(t *testing.T) {
	frame := newFrame(t)
	d := inject.NewDetector(models.SourceLearned)
	d.DetectFunc = func(_ context.Context, img gocv.Mat) ([]models.Detection, error) {
		img.SetTo(gocv.NewScalar(255, 255, 255, 0))
		return nil, nil
	}
	g := detection.NewGuard(d, detection.GuardOptions{Timeout: time.Second})

	_, err := g.Detect(context.Background(), frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame.GetVecbAt(0, 0)[0], test.ShouldEqual, uint8(0))
}

func TestServiceFor(t *testing.T) {
	s := detection.NewServiceFrom(
		inject.NewDetector(models.SourceLearned),
		&detection.Unavailable{Source: models.SourceCascade},
		detection.GuardOptions{},
	)
	test.That(t, s.For(models.SourceLearned), test.ShouldEqual, s.Learned)
	test.That(t, s.For(models.SourceCascade).Available(), test.ShouldBeFalse)
	test.That(t, s.For(models.DetectionSource("x")), test.ShouldBeNil)
	test.That(t, s.Close(), test.ShouldBeNil)
}

type namedDetector struct {
	*inject.Detector
	names []string
}

func (d namedDetector) Names() []string { return d.names }

func TestServiceInfo(t *testing.T) {
	cascade := namedDetector{Detector: inject.NewDetector(models.SourceCascade), names: []string{"face", "eye"}}
	cascade.DetectFunc = func(context.Context, gocv.Mat) ([]models.Detection, error) {
		return nil, errors.New("bad frame")
	}
	s := detection.NewServiceFrom(
		inject.NewDetector(models.SourceLearned),
		cascade,
		detection.GuardOptions{Timeout: time.Second},
	)

	_, err := s.Learned.Detect(context.Background(), newFrame(t))
	test.That(t, err, test.ShouldBeNil)
	_, err = s.Cascade.Detect(context.Background(), newFrame(t))
	test.That(t, err, test.ShouldNotBeNil)

	info := s.Info()
	test.That(t, info["learned"], test.ShouldResemble, models.DetectorInfo{Available: true, Calls: 1})
	test.That(t, info["cascade"].Available, test.ShouldBeTrue)
	test.That(t, info["cascade"].Busy, test.ShouldBeFalse)
	test.That(t, info["cascade"].Failures, test.ShouldEqual, uint64(1))
	test.That(t, info["cascade"].Loaded, test.ShouldResemble, []string{"face", "eye"})
}
