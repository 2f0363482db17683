package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

var acceptedFormats = map[string]struct{}{
	"jpeg": {},
	"png":  {},
	"bmp":  {},
}

// DetectFormat sniffs the image header and returns "jpeg", "png" or "bmp".
// Anything else, including truncated or empty data, is ErrUnsupportedImage.
func DetectFormat(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return "", fmt.Errorf("%w: unknown format", ErrUnsupportedImage)
		}
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if _, ok := acceptedFormats[format]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	return format, nil
}
