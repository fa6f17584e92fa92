package messaging

import (
	"errors"
	"testing"

	"go.viam.com/test"

	"dualvision-worker-go/internal/models"
)

func TestSubjectsFor(t *testing.T) {
	s := SubjectsFor("lab")
	test.That(t, s.Detections, test.ShouldEqual, "lab.detections")
	test.That(t, s.Status, test.ShouldEqual, "lab.status")
	test.That(t, s.Control, test.ShouldEqual, "lab.control")
	test.That(t, SubjectsFor("").Control, test.ShouldEqual, "dualvision.control")
}

func TestParseControl(t *testing.T) {
	cmd, err := ParseControl([]byte(`{"action":"switch","device_index":2}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd.Action, test.ShouldEqual, models.ControlSwitch)
	test.That(t, *cmd.DeviceIndex, test.ShouldEqual, 2)

	cmd, err = ParseControl([]byte(`{"action":"stop"}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmd.DeviceIndex, test.ShouldBeNil)

	for _, bad := range []string{
		`not json`,
		`{"action":"reboot"}`,
		`{"action":"switch"}`,
		`{"action":"start","device_index":-1}`,
	} {
		_, err := ParseControl([]byte(bad))
		test.That(t, errors.Is(err, ErrInvalidCommand), test.ShouldBeTrue)
	}
}
