// Package texture wraps the decoded source photograph that is mapped onto
// the generated surface and embedded into exports.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// Texture is a fully decoded source photograph. The image is mapped onto
// the surface grid via planar UVs, never resized for display; only the
// export path caps its dimensions.
type Texture struct {
	Image      image.Image
	SourceFile string // original file name, may be empty
}

// Decode decodes an encoded image (png, jpeg or gif) into a Texture.
func Decode(data []byte, sourceFile string) (*Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", sourceFile, err)
	}
	return &Texture{Image: img, SourceFile: sourceFile}, nil
}

// Width returns the pixel width of the image.
func (t *Texture) Width() int {
	return t.Image.Bounds().Dx()
}

// Height returns the pixel height of the image.
func (t *Texture) Height() int {
	return t.Image.Bounds().Dy()
}

// Resolution returns the texture resolution as a "WxH" string.
func (t *Texture) Resolution() string {
	return fmt.Sprintf("%dx%d", t.Width(), t.Height())
}

// Capped returns a texture whose longest side does not exceed maxDim,
// downscaling with bilinear filtering when needed. The receiver is
// returned unchanged when it already fits.
func (t *Texture) Capped(maxDim int) *Texture {
	w, h := t.Width(), t.Height()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return t
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), t.Image, t.Image.Bounds(), xdraw.Src, nil)
	return &Texture{Image: dst, SourceFile: t.SourceFile}
}

// EncodePNG encodes the image as PNG for embedding into a binary export.
func (t *Texture) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, t.Image); err != nil {
		return nil, fmt.Errorf("encode texture png: %w", err)
	}
	return buf.Bytes(), nil
}
