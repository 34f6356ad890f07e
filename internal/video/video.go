package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/raster"
	"github.com/ivlev/svg2video/internal/system"
)

// Muxer is the external collaborator that assembles the ordered frame
// sequence into a media container once the job is finished.
type Muxer interface {
	Mux(ctx context.Context, frames []*raster.Frame, finalPath string, cfg *config.Config) error
}

type FFmpegMuxer struct{}

// Mux pipes the frames as raw RGBA through ffmpeg's stdin into an H.264 MP4.
// Frames are written strictly in slice order; the frame rate comes from the
// sampling configuration, so playback time matches the sampled window.
func (e *FFmpegMuxer) Mux(ctx context.Context, frames []*raster.Frame, finalPath string, cfg *config.Config) error {
	if len(frames) == 0 {
		return fmt.Errorf("нет кадров для сборки видео")
	}

	width, height := cfg.Width, cfg.Height
	if width <= 0 || height <= 0 {
		width, height = frames[0].Width, frames[0].Height
	}
	// Чётные габариты — требование yuv420p.
	width, height = width+width%2, height+height%2

	args := e.buildFFmpegArgs(width, height, finalPath, cfg)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stdin.Close()
		if err := e.writeFrames(stdin, frames, width, height); err != nil {
			return err
		}
		if cfg.QRLink != "" {
			return e.writeOutro(stdin, cfg.QRLink, width, height, int(cfg.FPS))
		}
		return nil
	})

	writeErr := g.Wait()
	waitErr := cmd.Wait()
	if writeErr != nil {
		return fmt.Errorf("передача кадров: %w", writeErr)
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg wait error: %v\nЛог: %s", waitErr, out.String())
	}
	return nil
}

func (e *FFmpegMuxer) buildFFmpegArgs(width, height int, finalPath string, cfg *config.Config) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%f", cfg.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", cfg.VideoEncoder,
	}

	// Качество в зависимости от энкодера
	switch cfg.VideoEncoder {
	case "h264_videotoolbox":
		// VideoToolbox часто не поддерживает -q:v напрямую. Используем битрейт.
		bitrate := cfg.Quality * 100 // кбит/с. 75 -> 7.5Мбит/с
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", cfg.Quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", cfg.Quality), "-preset", "medium")
	}

	args = append(args, finalPath)
	return args
}

// writeFrames decodes each buffered frame and writes it as raw RGBA, scaling
// to the output geometry when the rasterized size differs.
func (e *FFmpegMuxer) writeFrames(w io.Writer, frames []*raster.Frame, width, height int) error {
	target := image.Rect(0, 0, width, height)
	for _, f := range frames {
		img, err := raster.Decode(f)
		if err != nil {
			return err
		}
		if err := e.writeRawRGBA(w, img, target); err != nil {
			return fmt.Errorf("кадр %d: %w", f.Index, err)
		}
	}
	return nil
}

func (e *FFmpegMuxer) writeRawRGBA(w io.Writer, img image.Image, target image.Rectangle) error {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Bounds() != target || rgba.Stride != target.Dx()*4 {
		scaled := system.GetImage(target)
		defer system.PutImage(scaled)
		draw.CatmullRom.Scale(scaled, target, img, img.Bounds(), draw.Src, nil)
		rgba = scaled
	}
	_, err := w.Write(rgba.Pix)
	return err
}
