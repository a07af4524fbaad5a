package models

import "time"

// DescriptorSize is the length of a dlib face descriptor.
const DescriptorSize = 128

// Descriptor is a face embedding. Same layout as go-face's Descriptor so the
// two convert directly.
type Descriptor [DescriptorSize]float32

// ReferenceDescriptor is a descriptor tagged with a known identity.
type ReferenceDescriptor struct {
	Label      string
	Descriptor Descriptor
}

// Box is a face bounding box in pixels.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Scale maps the box from a source frame size to a display size.
// Zero-sized frames leave the box untouched.
func (b Box) Scale(fromWidth, fromHeight, toWidth, toHeight int) Box {
	if fromWidth <= 0 || fromHeight <= 0 || toWidth <= 0 || toHeight <= 0 {
		return b
	}
	sx := float64(toWidth) / float64(fromWidth)
	sy := float64(toHeight) / float64(fromHeight)
	return Box{
		X:      int(float64(b.X)*sx + 0.5),
		Y:      int(float64(b.Y)*sy + 0.5),
		Width:  int(float64(b.Width)*sx + 0.5),
		Height: int(float64(b.Height)*sy + 0.5),
	}
}

// Detection is one face found in a frame.
type Detection struct {
	Box        Box
	Descriptor Descriptor
}

// Frame is a JPEG encoded camera frame.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Empty reports whether the frame carries no image.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Largest returns the detection with the biggest box area. Ties keep the
// earliest detection.
func Largest(detections []Detection) (Detection, bool) {
	if len(detections) == 0 {
		return Detection{}, false
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Box.Width*d.Box.Height > best.Box.Width*best.Box.Height {
			best = d
		}
	}
	return best, true
}
