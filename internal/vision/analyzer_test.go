package vision

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"typestress/internal/models"
)

// syntheticFace builds a 100x100 grayscale frame with a flat base tone, a
// darker eye band and a brighter mouth band.
func syntheticFace(base, eye, mouth uint8) []uint8 {
	pixels := make([]uint8, 100*100)
	for y := 0; y < 100; y++ {
		v := base
		if y >= 20 && y < 50 {
			v = eye
		}
		if y >= 60 && y < 80 {
			v = mouth
		}
		for x := 0; x < 100; x++ {
			pixels[y*100+x] = v
		}
	}
	return pixels
}

func wholeFrame() Region {
	return Region{Row: 50, Col: 50, Size: 100}
}

func TestComputeMetrics(t *testing.T) {
	pixels := syntheticFace(128, 100, 150)
	m := ComputeMetrics(pixels, 100, 100, wholeFrame())

	if m.EyeIntensity < 90 || m.EyeIntensity > 110 {
		t.Errorf("EyeIntensity = %v, want ~100", m.EyeIntensity)
	}
	if m.MouthIntensity < 140 || m.MouthIntensity > 160 {
		t.Errorf("MouthIntensity = %v, want ~150", m.MouthIntensity)
	}
	if m.FaceMean <= 0 {
		t.Errorf("FaceMean = %v, want > 0", m.FaceMean)
	}
	// Flat bands have no spread
	if m.EyeVariance != 0 || m.MouthVariance != 0 {
		t.Errorf("flat bands have variance (%v, %v), want 0", m.EyeVariance, m.MouthVariance)
	}
}

func TestComputeMetricsEmptyRegion(t *testing.T) {
	m := ComputeMetrics(syntheticFace(128, 100, 150), 100, 100, Region{})
	if m.FaceMean != 0 {
		t.Errorf("empty region FaceMean = %v, want 0", m.FaceMean)
	}
}

func TestScoreEmotionsHappy(t *testing.T) {
	m := FacialMetrics{
		EyeIntensity:   100,
		MouthIntensity: 105, // above face mean * 1.02
		EyeVariance:    10,
		MouthVariance:  25, // above variance threshold of 20
		FaceMean:       100,
	}

	scores := ScoreEmotions(m, DefaultThresholds())
	if scores[models.LabelHappy] <= 0 {
		t.Errorf("Happy score = %v, want > 0", scores[models.LabelHappy])
	}

	label, hint := SelectLabel(scores, m.FaceMean, DefaultThresholds())
	if label != models.LabelHappy {
		t.Errorf("label = %v, want Happy", label)
	}
	if hint <= 0 {
		t.Errorf("confidence hint = %v, want > 0", hint)
	}
}

func TestScoreEmotionsStressed(t *testing.T) {
	m := FacialMetrics{
		EyeIntensity:   95,
		MouthIntensity: 85, // below face mean * 0.9
		EyeVariance:    30, // above variance threshold
		MouthVariance:  25,
		FaceMean:       100,
	}

	scores := ScoreEmotions(m, DefaultThresholds())
	label, _ := SelectLabel(scores, m.FaceMean, DefaultThresholds())

	// Stressed and Nervous both score 2.0 here; Stressed wins the tie-break
	if label != models.LabelStressed {
		t.Errorf("label = %v, want Stressed", label)
	}
}

func TestSelectLabelNoScores(t *testing.T) {
	label, hint := SelectLabel(map[models.StressLabel]float64{}, 100, DefaultThresholds())
	if label != models.LabelNormal {
		t.Errorf("label = %v, want Normal", label)
	}
	if hint != 0 {
		t.Errorf("hint = %v, want 0", hint)
	}
}

func TestSelectLabelDarkFaceOverride(t *testing.T) {
	scores := map[models.StressLabel]float64{
		models.LabelHappy: 2.0,
		models.LabelTired: 1.0,
		models.LabelSad:   1.0,
	}

	label, _ := SelectLabel(scores, 40, DefaultThresholds())
	if label != models.LabelTired && label != models.LabelSad {
		t.Errorf("dark-face label = %v, want Tired or Sad", label)
	}
}

func TestMotionDeltaBumpsNervous(t *testing.T) {
	m := FacialMetrics{
		EyeIntensity:   100,
		MouthIntensity: 100,
		EyeVariance:    5,
		MouthVariance:  5,
		FaceMean:       100,
		MotionDelta:    25,
	}

	scores := ScoreEmotions(m, DefaultThresholds())
	if scores[models.LabelNervous] <= 0 {
		t.Errorf("Nervous score = %v, want motion bump", scores[models.LabelNervous])
	}
}

func TestAnalyzeFrameWithoutCascade(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	a := NewAnalyzer(nil, DefaultThresholds())
	label, _, hint := a.AnalyzeFrame(buf.Bytes(), "sess-1")
	if label != models.LabelUnknown {
		t.Errorf("label without cascade = %v, want Unknown", label)
	}
	if hint != 0 {
		t.Errorf("hint without cascade = %v, want 0", hint)
	}
}

func TestAnalyzeFrameUndecodable(t *testing.T) {
	a := NewAnalyzer(nil, DefaultThresholds())
	label, _, _ := a.AnalyzeFrame([]byte("not an image"), "")
	if label != models.LabelUnknown {
		t.Errorf("label for garbage bytes = %v, want Unknown", label)
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{
			name:    "data URL",
			payload: "data:image/jpeg;base64,aGVsbG8=",
			want:    "hello",
		},
		{
			name:    "bare base64",
			payload: "aGVsbG8=",
			want:    "hello",
		},
		{
			name:    "empty",
			payload: "",
			wantErr: true,
		},
		{
			name:    "invalid base64",
			payload: "data:image/jpeg;base64,!!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := DecodePayload(tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePayload failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("DecodePayload = %q, want %q", data, tt.want)
			}
		})
	}
}
