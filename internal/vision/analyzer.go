// Package vision scores webcam frames into discrete stress labels using
// classical image heuristics over a located face region. There is no
// learned model here: the thresholds are fixed, documented constants.
package vision

import (
	"math"
	"sync"

	"typestress/internal/models"
)

// FacialMetrics is the scalar heuristic vector extracted from one face
// region: mean intensity and intensity spread over the eye and mouth bands,
// overall face brightness, and the brightness delta against the previous
// frame of the same session.
type FacialMetrics struct {
	EyeIntensity   float64
	MouthIntensity float64
	EyeVariance    float64
	MouthVariance  float64
	FaceMean       float64
	MotionDelta    float64
}

// Band geometry inside the face square, as fractions of its height.
const (
	eyeBandTop    = 0.2
	eyeBandBottom = 0.5
	mouthBandTop  = 0.6
	mouthBandBot  = 0.8
)

// Thresholds are the tunable constants that map the heuristic vector to a
// label. All ratio fields are relative to the face mean brightness.
type Thresholds struct {
	// VarianceRatio sets the base variance threshold: a band is "busy"
	// when its intensity spread exceeds FaceMean * VarianceRatio.
	VarianceRatio float64

	HappyMouthRatio  float64 // mouth brighter than this ratio suggests a smile
	SadMouthRatio    float64 // mouth darker than this ratio
	SadEyeRatio      float64 // eyes darker than this ratio
	StressMouthRatio float64 // dark mouth paired with busy eyes
	CalmVariance     float64 // fraction of the variance threshold both bands stay under
	FocusVariance    float64 // fraction of the variance threshold for a steady gaze
	TiredEyeRatio    float64 // dark, still eyes
	TiredVariance    float64
	AngryMouthRatio  float64 // tight lips with pronounced eyes
	AngryEyeRatio    float64

	// DarkFaceMean is the brightness floor below which Tired/Sad override
	// the winning label.
	DarkFaceMean float64

	// MotionDelta is the frame-to-frame face-brightness change above which
	// the Nervous score gets a bump.
	MotionDelta float64
}

// DefaultThresholds returns the stock tuning
func DefaultThresholds() Thresholds {
	return Thresholds{
		VarianceRatio:    0.2,
		HappyMouthRatio:  1.02,
		SadMouthRatio:    0.85,
		SadEyeRatio:      0.9,
		StressMouthRatio: 0.9,
		CalmVariance:     0.4,
		FocusVariance:    0.5,
		TiredEyeRatio:    0.8,
		TiredVariance:    0.6,
		AngryMouthRatio:  0.88,
		AngryEyeRatio:    1.05,
		DarkFaceMean:     50,
		MotionDelta:      18,
	}
}

// ComputeMetrics extracts the heuristic vector from the face region of a
// grayscale frame. The region is clipped to the frame bounds.
func ComputeMetrics(pixels []uint8, rows, cols int, face Region) FacialMetrics {
	half := face.Size / 2
	x0 := clamp(face.Col-half, 0, cols)
	x1 := clamp(face.Col+half, 0, cols)
	y0 := clamp(face.Row-half, 0, rows)
	y1 := clamp(face.Row+half, 0, rows)

	height := y1 - y0
	if height <= 0 || x1-x0 <= 0 {
		return FacialMetrics{}
	}

	eyeMean, eyeStd := bandStats(pixels, cols, x0, x1,
		y0+int(float64(height)*eyeBandTop), y0+int(float64(height)*eyeBandBottom))
	mouthMean, mouthStd := bandStats(pixels, cols, x0, x1,
		y0+int(float64(height)*mouthBandTop), y0+int(float64(height)*mouthBandBot))
	faceMean, _ := bandStats(pixels, cols, x0, x1, y0, y1)

	return FacialMetrics{
		EyeIntensity:   eyeMean,
		MouthIntensity: mouthMean,
		EyeVariance:    eyeStd,
		MouthVariance:  mouthStd,
		FaceMean:       faceMean,
	}
}

// bandStats computes mean and standard deviation over a pixel rectangle
func bandStats(pixels []uint8, cols, x0, x1, y0, y1 int) (mean, std float64) {
	count := 0
	sum := 0.0
	for y := y0; y < y1; y++ {
		row := y * cols
		for x := x0; x < x1; x++ {
			sum += float64(pixels[row+x])
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	mean = sum / float64(count)

	variance := 0.0
	for y := y0; y < y1; y++ {
		row := y * cols
		for x := x0; x < x1; x++ {
			d := float64(pixels[row+x]) - mean
			variance += d * d
		}
	}
	return mean, math.Sqrt(variance / float64(count))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScoreEmotions maps the heuristic vector to per-label scores
func ScoreEmotions(m FacialMetrics, th Thresholds) map[models.StressLabel]float64 {
	vt := m.FaceMean * th.VarianceRatio
	scores := make(map[models.StressLabel]float64)

	// Bright, busy mouth reads as a smile
	if m.MouthIntensity > m.FaceMean*th.HappyMouthRatio && m.MouthVariance > vt {
		scores[models.LabelHappy] = 2.0
	}

	// Uniformly dark features
	if m.MouthIntensity < m.FaceMean*th.SadMouthRatio && m.EyeIntensity < m.FaceMean*th.SadEyeRatio {
		scores[models.LabelSad] += 1.5
		scores[models.LabelTired] += 1.5
	}

	// Both bands busy
	if m.EyeVariance > vt && m.MouthVariance > vt {
		scores[models.LabelNervous] += 2.0
	}

	// Busy eyes over a dark mouth: furrowing
	if m.EyeVariance > vt && m.MouthIntensity < m.FaceMean*th.StressMouthRatio {
		scores[models.LabelStressed] += 2.0
		scores[models.LabelAngry] += 1.0
	}

	// Both bands still
	if m.EyeVariance < vt*th.CalmVariance && m.MouthVariance < vt*th.CalmVariance {
		scores[models.LabelCalm] += 1.5
		scores[models.LabelChill] += 1.0
		scores[models.LabelFocused] += 1.0
	}

	// Steady gaze with a neutral mouth
	if m.EyeVariance < vt*th.FocusVariance && m.MouthIntensity < m.FaceMean {
		scores[models.LabelFocused] += 1.5
	}

	// Dark, still eyes
	if m.EyeIntensity < m.FaceMean*th.TiredEyeRatio && m.EyeVariance < vt*th.TiredVariance {
		scores[models.LabelTired] += 2.0
	}

	// Tight lips with pronounced eyes
	if m.MouthIntensity < m.FaceMean*th.AngryMouthRatio && m.EyeIntensity > m.FaceMean*th.AngryEyeRatio {
		scores[models.LabelAngry] += 2.0
	}

	// Large frame-to-frame brightness swings suggest fidgeting
	if m.MotionDelta > th.MotionDelta {
		scores[models.LabelNervous] += 0.5
	}

	return scores
}

// SelectLabel picks the final label from the scores. Ties break in the
// fixed priority order of models.ScoredLabels; very dark faces override to
// Tired or Sad when either carries weight. A scoreless frame is Normal.
// The winning score is returned as the confidence hint.
func SelectLabel(scores map[models.StressLabel]float64, faceMean float64, th Thresholds) (models.StressLabel, float64) {
	best := 0.0
	for _, v := range scores {
		if v > best {
			best = v
		}
	}
	if best <= 0 {
		return models.LabelNormal, 0
	}

	for _, label := range models.ScoredLabels {
		if scores[label] != best {
			continue
		}
		if faceMean < th.DarkFaceMean {
			if scores[models.LabelTired] >= 1.0 {
				return models.LabelTired, scores[models.LabelTired]
			}
			if scores[models.LabelSad] >= 1.0 {
				return models.LabelSad, scores[models.LabelSad]
			}
		}
		return label, best
	}

	return models.LabelNormal, 0
}

// Analyzer runs the full scoring pass per frame. The only cross-frame state
// is the previous face brightness per session, used for the motion proxy;
// it is keyed by session id so concurrent sessions never interfere.
type Analyzer struct {
	detector   *Detector
	thresholds Thresholds

	mu           sync.Mutex
	lastFaceMean map[string]float64
}

// NewAnalyzer creates an analyzer. A nil detector is allowed: every frame
// then scores as Unknown, which keeps the typing flow alive when the
// cascade file is missing.
func NewAnalyzer(detector *Detector, thresholds Thresholds) *Analyzer {
	return &Analyzer{
		detector:     detector,
		thresholds:   thresholds,
		lastFaceMean: make(map[string]float64),
	}
}

// AnalyzeFrame decodes the image, locates the dominant face, and maps its
// heuristics to a label. Zero faces, an unloadable cascade, or an
// undecodable frame all yield Unknown rather than an error: a frame the
// scorer cannot read is an undetermined reading, not a failure of the
// pipeline. The returned hint is the winning heuristic score.
func (a *Analyzer) AnalyzeFrame(data []byte, sessionID string) (models.StressLabel, FacialMetrics, float64) {
	pixels, rows, cols, err := DecodeGrayscale(data)
	if err != nil {
		return models.LabelUnknown, FacialMetrics{}, 0
	}

	face, found := a.detector.Largest(pixels, rows, cols)
	if !found {
		return models.LabelUnknown, FacialMetrics{}, 0
	}

	m := ComputeMetrics(pixels, rows, cols, face)

	if sessionID != "" {
		a.mu.Lock()
		if prev, ok := a.lastFaceMean[sessionID]; ok {
			m.MotionDelta = math.Abs(m.FaceMean - prev)
		}
		a.lastFaceMean[sessionID] = m.FaceMean
		a.mu.Unlock()
	}

	label, hint := SelectLabel(ScoreEmotions(m, a.thresholds), m.FaceMean, a.thresholds)
	return label, m, hint
}

// ForgetSession drops the per-session motion state
func (a *Analyzer) ForgetSession(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.lastFaceMean, sessionID)
}
