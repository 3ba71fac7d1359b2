package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	stddraw "image/draw"
	"image/jpeg"
	_ "image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

var (
	ErrInvalidImage  = errors.New("file is not a valid JPEG or PNG image")
	ErrImageTooLarge = errors.New("image dimensions are too large")
)

const (
	avatarQuality = 85
	// MaxImagePixels bounds width*height of a source image before it is decoded.
	MaxImagePixels = 40_000_000
)

// ResizeAvatar decodes a JPEG or PNG image, center-crops it to the target
// aspect ratio, scales it to width x height and re-encodes it as JPEG.
func ResizeAvatar(r io.Reader, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid avatar size %dx%d", width, height)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	// Decoding allocates the full pixel buffer from the header, so check it first.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || (format != "jpeg" && format != "png") {
		return nil, ErrInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrInvalidImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, ErrImageTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrInvalidImage
	}

	cropRect := centerCrop(src.Bounds(), width, height)
	cropped := image.NewRGBA(image.Rect(0, 0, cropRect.Dx(), cropRect.Dy()))
	stddraw.Draw(cropped, cropped.Bounds(), src, cropRect.Min, stddraw.Src)

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(canvas, canvas.Bounds(), cropped, cropped.Bounds(), stddraw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, canvas, &jpeg.Options{Quality: avatarQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return out.Bytes(), nil
}

// centerCrop returns the largest rectangle of b with the aspect ratio w:h, centered.
func centerCrop(b image.Rectangle, w, h int) image.Rectangle {
	srcW, srcH := b.Dx(), b.Dy()
	cropW, cropH := srcW, srcW*h/w
	if cropH > srcH {
		cropW, cropH = srcH*w/h, srcH
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}
	x0 := b.Min.X + (srcW-cropW)/2
	y0 := b.Min.Y + (srcH-cropH)/2
	return image.Rect(x0, y0, x0+cropW, y0+cropH)
}
