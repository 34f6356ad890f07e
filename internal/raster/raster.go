// Package raster turns a serialized static SVG snapshot into an encoded
// bitmap frame. oksvg parses the markup, rasterx scans it onto a pooled RGBA
// buffer, and the result is carried as base64 PNG without a data-URI prefix.
package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/ivlev/svg2video/internal/system"
)

// Размер по умолчанию, когда ни конфигурация, ни viewBox не задают габариты.
const fallbackSide = 512

// Frame is one rasterized sample: PNG bytes base64-encoded (no data-URI
// prefix) plus the 0-based sequence index.
type Frame struct {
	Index  int
	Data   string
	Width  int
	Height int
}

// Rasterizer is the drawing surface collaborator: it resolves the standalone
// markup out-of-document and produces the bitmap for one sampling step.
type Rasterizer interface {
	Rasterize(markup string, index int) (*Frame, error)
}

// OksvgRasterizer rasterizes with the oksvg/rasterx stack. A zero Width or
// Height means "take it from the document viewBox".
type OksvgRasterizer struct {
	Width  int
	Height int
}

func (r *OksvgRasterizer) Rasterize(markup string, index int) (*Frame, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(markup), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("декодирование кадра %d: %w", index, err)
	}

	w, h := r.Width, r.Height
	if w <= 0 || h <= 0 {
		w, h = int(icon.ViewBox.W), int(icon.ViewBox.H)
	}
	if w <= 0 || h <= 0 {
		w, h = fallbackSide, fallbackSide
	}

	img := system.GetImage(image.Rect(0, 0, w, h))
	defer system.PutImage(img)

	// Буфер из пула не обнулён.
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	icon.SetTarget(0, 0, float64(w), float64(h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("кодирование кадра %d: %w", index, err)
	}

	return &Frame{
		Index:  index,
		Data:   base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  w,
		Height: h,
	}, nil
}

// Decode restores the bitmap from a frame's base64 payload.
func Decode(f *Frame) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, fmt.Errorf("кадр %d: повреждённый base64: %w", f.Index, err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("кадр %d: повреждённый PNG: %w", f.Index, err)
	}
	return img, nil
}
