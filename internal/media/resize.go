package media

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/draw"

	apperrors "github.com/ludaNOFX/ludaproj-full/pkg/errors"
)

// decodeImage decodes a jpeg, png, or gif source image.
func decodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unreadable image: %v", err))
	}
	return img, nil
}

// thumbnailFit downscales src to fit within the bounding box, preserving the
// aspect ratio. It never upscales: a source already inside the box is
// returned unchanged.
func thumbnailFit(src image.Image, bound Size) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if w <= bound.Width && h <= bound.Height {
		return src
	}

	ratio := float64(bound.Width) / float64(w)
	if hr := float64(bound.Height) / float64(h); hr < ratio {
		ratio = hr
	}

	tw := int(float64(w) * ratio)
	th := int(float64(h) * ratio)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// encodeImage writes img in the format implied by the file extension.
func encodeImage(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 85})
	case ".png":
		return png.Encode(w, img)
	case ".gif":
		return gif.Encode(w, img, nil)
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unsupported image extension %q", ext))
	}
}
