package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

const pngDataURIPrefix = "data:image/png;base64,"

// CropToArea extracts the selected area from a full-page screenshot.
//
// The selection is in CSS pixels while the screenshot may be rendered at a
// higher device pixel ratio, so the rectangle is scaled by the ratio of
// image size to viewport size before extraction. Both input and output are
// PNG data URIs.
func CropToArea(dataURL string, area types.ScreenshotArea, viewportWidth, viewportHeight int) (string, error) {
	if area.Width <= 0 || area.Height <= 0 {
		return "", fmt.Errorf("capture: empty crop area %dx%d", area.Width, area.Height)
	}
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return "", fmt.Errorf("capture: invalid viewport %dx%d", viewportWidth, viewportHeight)
	}

	img, err := decodeDataURI(dataURL)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	scaleX := float64(bounds.Dx()) / float64(viewportWidth)
	scaleY := float64(bounds.Dy()) / float64(viewportHeight)

	// Origin and size round independently; deriving the size from two
	// rounded corners can drift by a pixel under a fractional scale.
	originX := int(math.Round(float64(area.X) * scaleX))
	originY := int(math.Round(float64(area.Y) * scaleY))
	width := int(math.Round(float64(area.Width) * scaleX))
	height := int(math.Round(float64(area.Height) * scaleY))

	rect := image.Rect(originX, originY, originX+width, originY+height)
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return "", fmt.Errorf("capture: crop area %v outside image bounds %v", area, bounds)
	}

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return "", fmt.Errorf("capture: image type %T does not support cropping", img)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, sub.SubImage(rect)); err != nil {
		return "", fmt.Errorf("capture: encode cropped image: %w", err)
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// EncodePNGDataURI wraps raw PNG bytes as a data URI.
func EncodePNGDataURI(data []byte) string {
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(data)
}

func decodeDataURI(dataURL string) (image.Image, error) {
	payload := dataURL
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("capture: decode base64 image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("capture: decode image: %w", err)
	}
	return img, nil
}
