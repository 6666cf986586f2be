// Package imagedata parses data URIs and shrinks photos before they are sent
// to a detection model.
package imagedata

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"

	"pantrychef/internal/recipe"
)

// MaxWidth is the widest image forwarded to a model.
const MaxWidth = 800

// Image is a decoded data URI.
type Image struct {
	MIMEType string
	Data     []byte
}

// Format is the subtype of the MIME type, e.g. "png" for image/png.
func (i Image) Format() string {
	_, sub, _ := strings.Cut(i.MIMEType, "/")
	return sub
}

// Parse decodes a data:<mime>;base64,<data> URI. Only image types are accepted.
func Parse(uri string) (Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data: prefix", recipe.ErrInvalidImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing payload", recipe.ErrInvalidImage)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return Image{}, fmt.Errorf("%w: payload is not base64", recipe.ErrInvalidImage)
	}
	mime = strings.ToLower(mime)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: %q is not an image type", recipe.ErrInvalidImage, mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", recipe.ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty payload", recipe.ErrInvalidImage)
	}
	return Image{MIMEType: mime, Data: data}, nil
}

// ToDataURI encodes raw image bytes as a data URI.
func ToDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Shrink downscales img to at most MaxWidth pixels wide, keeping the aspect
// ratio, and re-encodes it. Images that are already small enough, and images
// in a format no registered decoder knows, are returned as they are. PNG stays
// PNG; everything else becomes JPEG.
func Shrink(img Image) (Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if errors.Is(err, image.ErrFormat) {
		return img, nil
	}
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", recipe.ErrUnsupportedFormat, err)
	}
	if decoded.Bounds().Dx() <= MaxWidth {
		return img, nil
	}

	decoded = resize.Resize(MaxWidth, 0, decoded, resize.Lanczos3)

	var buf bytes.Buffer
	out := Image{MIMEType: "image/jpeg"}
	if img.MIMEType == "image/png" {
		out.MIMEType = "image/png"
		err = png.Encode(&buf, decoded)
	} else {
		err = jpeg.Encode(&buf, decoded, nil)
	}
	if err != nil {
		return Image{}, fmt.Errorf("failed to encode image: %w", err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

// Prepare parses a data URI and shrinks the image in it.
func Prepare(uri string) (Image, error) {
	img, err := Parse(uri)
	if err != nil {
		return Image{}, err
	}
	return Shrink(img)
}
