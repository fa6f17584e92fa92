package camera

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestFPSMeter(t *testing.T) {
	m := NewFPSMeter(5)
	start := time.Unix(1000, 0)

	test.That(t, m.Tick(start), test.ShouldEqual, 0.0)
	for i := 1; i <= 10; i++ {
		m.Tick(start.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	test.That(t, m.Rate(), test.ShouldAlmostEqual, 10.0, 0.001)

	m.Reset()
	test.That(t, m.Rate(), test.ShouldEqual, 0.0)
}

func TestFPSMeterSameInstant(t *testing.T) {
	m := NewFPSMeter(0)
	now := time.Unix(1000, 0)
	m.Tick(now)
	test.That(t, m.Tick(now), test.ShouldEqual, 0.0)
}
