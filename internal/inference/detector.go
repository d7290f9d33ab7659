// Package inference talks to the external face-expression model. The model
// is consumed as a Detector: one frame in, zero or one face out.
package inference

import (
	"context"
	"errors"

	"github.com/blackwell-systems/smilecoach/internal/smile"
)

// ErrModelUnavailable is returned by Ready when the model cannot serve.
var ErrModelUnavailable = errors.New("expression model unavailable")

// Box is a detected face bounding box in frame coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one detected face.
type Detection struct {
	Sample smile.Sample `json:"sample"`
	Box    Box          `json:"box"`
}

// Detector runs expression inference on a frame. Detect returns a nil
// Detection and a nil error when no face is visible.
type Detector interface {
	Ready(ctx context.Context) error
	Detect(ctx context.Context, frame []byte) (*Detection, error)
}
