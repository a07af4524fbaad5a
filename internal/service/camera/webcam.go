// Package camera opens the system camera through OpenCV.
package camera

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"facematch/internal/models"

	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the device delivers an empty frame.
var ErrNoFrame = errors.New("camera returned no frame")

// Webcam is a video-only capture device.
type Webcam struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	mu      sync.Mutex
}

// Open requests capture of device, a numeric index ("0") or a path/URL.
// width and height are hints; the driver may pick another size.
func Open(device string, width, height int) (*Webcam, error) {
	var id interface{} = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}

	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %s is not available", device)
	}

	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return &Webcam{capture: vc, mat: gocv.NewMat()}, nil
}

// Grab reads the next frame and encodes it as JPEG.
func (w *Webcam) Grab() (models.Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture == nil {
		return models.Frame{}, fmt.Errorf("camera closed")
	}

	if ok := w.capture.Read(&w.mat); !ok || w.mat.Empty() {
		return models.Frame{}, ErrNoFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, w.mat)
	if err != nil {
		return models.Frame{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())

	return models.Frame{
		Data:       data,
		Width:      w.mat.Cols(),
		Height:     w.mat.Rows(),
		CapturedAt: time.Now(),
	}, nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture == nil {
		return nil
	}
	w.mat.Close()
	err := w.capture.Close()
	w.capture = nil
	return err
}
