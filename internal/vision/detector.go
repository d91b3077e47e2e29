package vision

import (
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Detection quality below this is treated as noise, not a face.
const minDetectionQuality = 5.0

// Region is a located face: a square of side Size centered at (Row, Col)
// in pixel coordinates.
type Region struct {
	Row  int
	Col  int
	Size int
	Q    float32
}

// Detector locates the dominant frontal face in a grayscale frame using a
// pretrained pixel-intensity-comparison cascade.
type Detector struct {
	classifier *pigo.Pigo
}

// NewDetector loads the cascade file and prepares the classifier
func NewDetector(cascadePath string) (*Detector, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	return &Detector{classifier: classifier}, nil
}

// Largest runs the cascade over the frame and returns the largest detected
// face. When several candidates overlap, clustering merges them first, so
// one steady face yields one region rather than a cloud of near-duplicates.
func (d *Detector) Largest(pixels []uint8, rows, cols int) (Region, bool) {
	if d == nil || d.classifier == nil || len(pixels) == 0 {
		return Region{}, false
	}

	params := pigo.CascadeParams{
		MinSize:     30,
		MaxSize:     rows,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, 0.2)

	best := Region{}
	found := false
	for _, det := range dets {
		if det.Q < minDetectionQuality {
			continue
		}
		if !found || det.Scale > best.Size {
			best = Region{Row: det.Row, Col: det.Col, Size: det.Scale, Q: det.Q}
			found = true
		}
	}

	return best, found
}
