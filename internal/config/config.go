package config

import (
	"fmt"
	"math"
)

// Значения по умолчанию для конфигурации сэмплирования.
const (
	DefaultFPS        = 60.0
	DefaultDurationMs = 1000.0
)

// Config describes one sampling job: how fast the animation clock advances,
// how long the sampled window is and where it begins, plus the output geometry
// and encoder settings consumed by the muxing stage.
type Config struct {
	InputPath   string
	OutputVideo string

	// Треугольник FPS / длительность / количество кадров.
	// После Reconcile всегда выполняется FrameCount = round(FPS*TotalDurationMs/1000).
	FPS             float64
	TotalDurationMs float64
	FrameCount      int
	BeginOffsetMs   float64

	Width  int
	Height int

	VideoEncoder string
	Quality      int
	Preset       string

	// Необязательная ссылка для QR-кода в концовке видео.
	QRLink string

	ShowStats    bool
	BuildVersion string
}

// Reconcile derives the missing members of the fps/duration/frameCount
// triangle and validates a fully supplied one. A zero value means "not
// supplied". Contradictory triples are rejected.
func (c *Config) Reconcile() error {
	if c.FPS < 0 || c.TotalDurationMs < 0 || c.FrameCount < 0 || c.BeginOffsetMs < 0 {
		return fmt.Errorf("параметры сэмплирования не могут быть отрицательными")
	}

	hasFPS := c.FPS > 0
	hasDur := c.TotalDurationMs > 0
	hasCount := c.FrameCount > 0

	switch {
	case hasFPS && hasDur && hasCount:
		expected := frameCountFor(c.FPS, c.TotalDurationMs)
		if c.FrameCount != expected {
			return fmt.Errorf("противоречивая конфигурация: fps=%.3f и длительность %.0fms дают %d кадров, задано %d",
				c.FPS, c.TotalDurationMs, expected, c.FrameCount)
		}
	case hasFPS && hasDur:
		c.FrameCount = frameCountFor(c.FPS, c.TotalDurationMs)
	case hasFPS && hasCount:
		c.TotalDurationMs = 1000 * float64(c.FrameCount) / c.FPS
	case hasDur && hasCount:
		c.FPS = 1000 * float64(c.FrameCount) / c.TotalDurationMs
	case hasFPS:
		c.TotalDurationMs = DefaultDurationMs
		c.FrameCount = frameCountFor(c.FPS, c.TotalDurationMs)
	case hasDur:
		c.FPS = DefaultFPS
		c.FrameCount = frameCountFor(c.FPS, c.TotalDurationMs)
	case hasCount:
		c.FPS = DefaultFPS
		c.TotalDurationMs = 1000 * float64(c.FrameCount) / c.FPS
	default:
		c.FPS = DefaultFPS
		c.TotalDurationMs = DefaultDurationMs
		c.FrameCount = frameCountFor(c.FPS, c.TotalDurationMs)
	}

	if c.FrameCount < 1 {
		return fmt.Errorf("конфигурация не даёт ни одного кадра (fps=%.3f, длительность %.3fms)", c.FPS, c.TotalDurationMs)
	}
	return nil
}

func frameCountFor(fps, durationMs float64) int {
	return int(math.Round(fps * durationMs / 1000))
}
