package streamcapture

import (
	"context"
	"fmt"

	"dualvision-worker-go/internal/models"
)

// TestDevice opens index, reads one frame and reports what the device offers.
// The active device is never reopened; its current description is returned instead.
func (s *Service) TestDevice(ctx context.Context, index int) (models.CameraInfo, error) {
	info := models.CameraInfo{Index: index}

	if active, running := s.DeviceIndex(); running && active == index {
		w, h, fps := s.Describe()
		info.Active = true
		info.CanRead = true
		info.Resolution = fmt.Sprintf("%dx%d", w, h)
		info.FPS = fps
		return info, nil
	}

	if err := ctx.Err(); err != nil {
		return info, err
	}

	dev, err := s.open(index)
	if err != nil {
		return info, fmt.Errorf("%w: device %d: %v", ErrDeviceUnavailable, index, err)
	}
	if dev == nil || !dev.IsOpened() {
		if dev != nil {
			dev.Close()
		}
		return info, fmt.Errorf("%w: device %d is not opened", ErrDeviceUnavailable, index)
	}

	w, h, fps := describeDevice(dev)
	info.Resolution = fmt.Sprintf("%dx%d", w, h)
	info.FPS = fps

	img, ok, done := timedRead(dev, s.opts.ReadTimeout)
	if done != nil {
		go func() {
			<-done
			img.Close()
			dev.Close()
		}()
		return info, nil
	}
	if ok && info.Resolution == "0x0" {
		info.Resolution = fmt.Sprintf("%dx%d", img.Cols(), img.Rows())
	}
	img.Close()
	dev.Close()

	info.CanRead = ok
	return info, nil
}

// ProbeDevices tries indices 0..maxIndex and returns the ones that open.
// Devices that open but cannot read are reported with CanRead=false.
func (s *Service) ProbeDevices(ctx context.Context, maxIndex int) []models.CameraInfo {
	var found []models.CameraInfo
	for i := 0; i <= maxIndex; i++ {
		if ctx.Err() != nil {
			break
		}
		info, err := s.TestDevice(ctx, i)
		if err != nil {
			s.logger.Debug().Err(err).Int("device_index", i).Msg("Device probe failed")
			continue
		}
		found = append(found, info)
	}
	s.logger.Info().Int("max_index", maxIndex).Int("found", len(found)).Msg("Device probe complete")
	return found
}
