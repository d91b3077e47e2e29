package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"strings"

	// Frame payloads are JPEG in practice, but PNG costs nothing to accept.
	_ "image/jpeg"
	_ "image/png"

	pigo "github.com/esimov/pigo/core"
)

var ErrEmptyImage = errors.New("empty image payload")

// DecodePayload turns a client frame payload into raw image bytes. The
// capture client sends canvas data URLs ("data:image/jpeg;base64,...");
// bare base64 and raw bytes pass through the other branches.
func DecodePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyImage
	}

	if idx := strings.IndexByte(payload, ','); strings.HasPrefix(payload, "data:") && idx >= 0 {
		payload = payload[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	return data, nil
}

// DecodeGrayscale decodes an encoded image into a grayscale pixel grid in
// row-major order.
func DecodeGrayscale(data []byte) (pixels []uint8, rows, cols int, err error) {
	if len(data) == 0 {
		return nil, 0, 0, ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, err
	}

	bounds := img.Bounds()
	return pigo.RgbToGrayscale(img), bounds.Dy(), bounds.Dx(), nil
}
