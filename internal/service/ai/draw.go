package ai

import (
	"fmt"
	"image"
	"image/color"

	"facematch/internal/models"

	"gocv.io/x/gocv"
)

var (
	knownColor   = color.RGBA{R: 0, G: 200, B: 0, A: 0}
	unknownColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// Annotate draws one box per face with its "label (distance)" text onto a JPEG
// frame and returns the re-encoded JPEG.
func Annotate(img []byte, faces []models.FaceResult) ([]byte, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	for _, f := range faces {
		c := unknownColor
		if f.Outcome.Known() {
			c = knownColor
		}

		rect := image.Rect(f.Box.X, f.Box.Y, f.Box.X+f.Box.Width, f.Box.Y+f.Box.Height)
		if err := gocv.Rectangle(&mat, rect, c, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		pt := image.Pt(f.Box.X, f.Box.Y-5)
		if err := gocv.PutText(&mat, f.Outcome.String(), pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
