package video

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/svg2video/internal/system"
)

// Длительность QR-концовки в секундах.
const outroSeconds = 2

// writeOutro appends a short static outro: the link rendered as a QR code,
// centered on white, repeated for outroSeconds worth of frames.
func (e *FFmpegMuxer) writeOutro(w io.Writer, link string, width, height, fps int) error {
	qr, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("генерация QR-кода: %w", err)
	}

	side := width
	if height < side {
		side = height
	}
	side = side * 2 / 3

	canvas := system.GetImage(image.Rect(0, 0, width, height))
	defer system.PutImage(canvas)

	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	qrImg := qr.Image(side)
	offset := image.Pt((width-side)/2, (height-side)/2)
	draw.Draw(canvas, qrImg.Bounds().Add(offset), qrImg, image.Point{}, draw.Over)

	if fps < 1 {
		fps = 1
	}
	for i := 0; i < fps*outroSeconds; i++ {
		if _, err := w.Write(canvas.Pix); err != nil {
			return err
		}
	}
	return nil
}
