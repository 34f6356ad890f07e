// Package job is the public control surface of a conversion job: load one
// animated SVG document, start sampling with a reconciled configuration,
// pause, resume, query status. One active job per Controller instance; all
// state is per-instance, never process-wide.
package job

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/raster"
	"github.com/ivlev/svg2video/internal/sampler"
	"github.com/ivlev/svg2video/internal/scene"
)

// SVGMediaType — единственный тип данных, который принимает загрузчик.
const SVGMediaType = "image/svg+xml"

var (
	// ErrNotLoaded reports render() before a completed load.
	ErrNotLoaded = errors.New("изображение не загружено")
	// ErrJobActive reports a second render() while a job is in flight.
	ErrJobActive = errors.New("задание уже выполняется")
	// ErrMediaType reports a blob whose declared type is not SVG.
	ErrMediaType = errors.New("неподдерживаемый тип данных")
)

// State of the controller, the externally visible job lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateRendering
	StatePaused
	StateFinished
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRendering:
		return "rendering"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Blob is a typed binary input. MediaType is validated against SVGMediaType
// at load time; a mismatch is a load failure, not silently accepted.
type Blob struct {
	Data      []byte
	MediaType string
}

// Controller composes the scene, the sampler and the rasterization surface
// into one job. The zero value is not usable; call NewController.
type Controller struct {
	mu      sync.Mutex
	state   State
	scene   *scene.Scene
	smp     *sampler.Sampler
	surface raster.Rasterizer
	frames  []*raster.Frame
	errMsg  string
}

func NewController() *Controller {
	return &Controller{}
}

// SetSurface injects a rasterization surface. When never called, an internal
// oksvg surface sized by the render configuration is created per job.
func (c *Controller) SetSurface(r raster.Rasterizer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surface = r
}

// Load accepts a parsed scene, a typed binary Blob, or raw markup text, and
// discards any previous job state. The callback is always invoked
// asynchronously, even when the input could be resolved immediately, so
// callers get one consistent contract.
func (c *Controller) Load(src any, callback func(error)) {
	c.mu.Lock()
	// Новая загрузка сбрасывает предыдущее задание.
	c.scene = nil
	c.smp = nil
	c.frames = nil
	c.errMsg = ""
	c.state = StateLoading
	c.mu.Unlock()

	go func() {
		sc, err := parseSource(src)

		c.mu.Lock()
		if err != nil {
			c.state = StateIdle
			c.errMsg = err.Error()
		} else {
			c.scene = sc
			c.state = StateReady
		}
		c.mu.Unlock()

		if callback != nil {
			callback(err)
		}
	}()
}

func parseSource(src any) (*scene.Scene, error) {
	switch v := src.(type) {
	case *scene.Scene:
		if v == nil {
			return nil, fmt.Errorf("передана пустая сцена")
		}
		return v, nil
	case Blob:
		return parseBlob(v)
	case *Blob:
		if v == nil {
			return nil, fmt.Errorf("передан пустой blob")
		}
		return parseBlob(*v)
	case string:
		return scene.Parse(v)
	case []byte:
		return scene.Parse(string(v))
	default:
		return nil, fmt.Errorf("неподдерживаемый источник %T", src)
	}
}

func parseBlob(b Blob) (*scene.Scene, error) {
	if b.MediaType != SVGMediaType {
		return nil, fmt.Errorf("%w: заявлен %q, ожидается %q", ErrMediaType, b.MediaType, SVGMediaType)
	}
	return scene.Parse(string(b.Data))
}

// Render validates preconditions, reconciles the configuration and starts
// sampling. The boolean reports whether the job was accepted to start, not
// whether it finished; on false the reason is available via ErrorMessage.
func (c *Controller) Render(cfg *config.Config, cb sampler.Callbacks) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.smp != nil && c.smp.IsActive() && c.smp.State() != sampler.Idle {
		c.errMsg = ErrJobActive.Error()
		return false
	}
	if c.scene == nil || c.state == StateLoading {
		c.errMsg = ErrNotLoaded.Error()
		return false
	}
	if err := cfg.Reconcile(); err != nil {
		c.errMsg = err.Error()
		return false
	}

	// Сброс счётчиков и буфера предыдущего задания.
	c.frames = c.frames[:0]
	c.errMsg = ""

	surface := c.surface
	if surface == nil {
		surface = &raster.OksvgRasterizer{Width: cfg.Width, Height: cfg.Height}
	}

	userFrame := cb.OnFrame
	cb.OnFrame = func(f *raster.Frame) {
		c.mu.Lock()
		c.frames = append(c.frames, f)
		c.mu.Unlock()
		if userFrame != nil {
			userFrame(f)
		}
	}

	userDone := cb.OnDone
	cb.OnDone = func(err error) {
		c.mu.Lock()
		if err != nil {
			c.state = StateFailed
			c.errMsg = err.Error()
		} else {
			c.state = StateFinished
		}
		c.mu.Unlock()
		if userDone != nil {
			userDone(err)
		}
	}

	smp := sampler.New(c.scene, surface, cfg, cb)
	if err := smp.Start(); err != nil {
		c.errMsg = err.Error()
		return false
	}
	c.smp = smp
	c.state = StateRendering
	return true
}

// Pause delegates to the frame sampler.
func (c *Controller) Pause() {
	c.mu.Lock()
	smp := c.smp
	if smp != nil && c.state == StateRendering {
		c.state = StatePaused
	}
	c.mu.Unlock()
	if smp != nil {
		smp.Pause()
	}
}

// Resume delegates to the frame sampler.
func (c *Controller) Resume() {
	c.mu.Lock()
	smp := c.smp
	if smp != nil && c.state == StatePaused {
		c.state = StateRendering
	}
	c.mu.Unlock()
	if smp != nil {
		smp.Resume()
	}
}

// IsActive is true until the job reaches Finished or Failed.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateFinished && c.state != StateFailed
}

// ErrorMessage returns the last recorded error string.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// State reports the externally visible job state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Frames returns the ordered buffered frames. Index order is the frame
// sequence order; the slice is complete once the job reports Finished.
func (c *Controller) Frames() []*raster.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*raster.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

// Progress reports produced and configured frame counts of the current job.
func (c *Controller) Progress() (done, total int) {
	c.mu.Lock()
	smp := c.smp
	c.mu.Unlock()
	if smp == nil {
		return 0, 0
	}
	return smp.Done(), smp.Total()
}
