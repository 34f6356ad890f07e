package job

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/raster"
	"github.com/ivlev/svg2video/internal/sampler"
)

const testMarkup = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
  <rect width="10" height="10" fill="#336699">
    <animate attributeName="fill" from="#336699" to="#996633" dur="1s"/>
  </rect>
</svg>`

// stubSurface обходит oksvg в тестах контроллера.
type stubSurface struct {
	mu   sync.Mutex
	gate chan struct{}
	n    int
}

func (s *stubSurface) Rasterize(markup string, index int) (*raster.Frame, error) {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return &raster.Frame{Index: index, Data: "ZmFrZQ==", Width: 10, Height: 10}, nil
}

func loadMarkup(t *testing.T, c *Controller, src any) error {
	t.Helper()
	loaded := make(chan error, 1)
	c.Load(src, func(err error) { loaded <- err })
	select {
	case err := <-loaded:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("load callback never fired")
		return nil
	}
}

func TestLoadRejectsWrongMediaType(t *testing.T) {
	c := NewController()
	err := loadMarkup(t, c, Blob{Data: []byte(testMarkup), MediaType: "text/plain"})
	if err == nil {
		t.Fatal("expected a load error for a text/plain blob")
	}
	if !errors.Is(err, ErrMediaType) {
		t.Errorf("expected ErrMediaType, got %v", err)
	}
	if c.State() == StateReady {
		t.Error("job must not transition to loaded state after a media type mismatch")
	}

	// Корректно заявленный blob загружается.
	if err := loadMarkup(t, c, Blob{Data: []byte(testMarkup), MediaType: SVGMediaType}); err != nil {
		t.Fatalf("valid blob rejected: %v", err)
	}
	if c.State() != StateReady {
		t.Errorf("expected StateReady, got %s", c.State())
	}
}

func TestLoadCallbackIsAsynchronous(t *testing.T) {
	c := NewController()
	release := make(chan struct{})
	fired := make(chan struct{})

	// Callback блокируется до сигнала: синхронный вызов внутри Load
	// намертво повесил бы сам Load, а значит и тест.
	c.Load(testMarkup, func(error) {
		<-release
		close(fired)
	})
	close(release)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("load callback never fired")
	}
}

func TestRenderBeforeLoadFails(t *testing.T) {
	c := NewController()
	cfg := &config.Config{FPS: 60, TotalDurationMs: 100}

	if c.Render(cfg, sampler.Callbacks{}) {
		t.Fatal("render must be rejected before load")
	}
	if msg := c.ErrorMessage(); !strings.Contains(msg, ErrNotLoaded.Error()) {
		t.Errorf("error message %q does not mention the unloaded state", msg)
	}
}

func TestRenderRejectsBadConfig(t *testing.T) {
	c := NewController()
	c.SetSurface(&stubSurface{})
	if err := loadMarkup(t, c, testMarkup); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	cfg := &config.Config{FPS: 60, TotalDurationMs: 1000, FrameCount: 10}
	if c.Render(cfg, sampler.Callbacks{}) {
		t.Fatal("render must reject a contradictory configuration")
	}
	if c.ErrorMessage() == "" {
		t.Error("rejection must record a retrievable error message")
	}
}

func TestRenderCollectsOrderedFrames(t *testing.T) {
	c := NewController()
	c.SetSurface(&stubSurface{})
	if err := loadMarkup(t, c, testMarkup); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	done := make(chan error, 1)
	cfg := &config.Config{FPS: 30, TotalDurationMs: 500}
	ok := c.Render(cfg, sampler.Callbacks{OnDone: func(err error) { done <- err }})
	if !ok {
		t.Fatalf("render rejected: %s", c.ErrorMessage())
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("job failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}

	if c.IsActive() {
		t.Error("finished job reports active")
	}
	if c.State() != StateFinished {
		t.Errorf("expected StateFinished, got %s", c.State())
	}

	frames := c.Frames()
	if len(frames) != 15 {
		t.Fatalf("expected 15 buffered frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d buffered out of order (index %d)", i, f.Index)
		}
	}
}

func TestConcurrentJobRejected(t *testing.T) {
	gate := make(chan struct{})
	c := NewController()
	c.SetSurface(&stubSurface{gate: gate})
	if err := loadMarkup(t, c, testMarkup); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	done := make(chan error, 1)
	cfg := &config.Config{FPS: 60, TotalDurationMs: 100}
	if !c.Render(cfg, sampler.Callbacks{OnDone: func(err error) { done <- err }}) {
		t.Fatalf("first render rejected: %s", c.ErrorMessage())
	}

	// Второе задание на активном контроллере отклоняется, первое не страдает.
	second := &config.Config{FPS: 30, TotalDurationMs: 100}
	if c.Render(second, sampler.Callbacks{}) {
		t.Fatal("second concurrent render must be rejected")
	}
	if msg := c.ErrorMessage(); !strings.Contains(msg, ErrJobActive.Error()) {
		t.Errorf("error message %q does not mention the active job", msg)
	}

	close(gate)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first job failed after rejected second render: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("first job never finished")
	}
}

func TestPauseResumeDelegation(t *testing.T) {
	gate := make(chan struct{})
	c := NewController()
	c.SetSurface(&stubSurface{gate: gate})
	if err := loadMarkup(t, c, testMarkup); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	done := make(chan error, 1)
	cfg := &config.Config{FPS: 60, FrameCount: 3}
	if !c.Render(cfg, sampler.Callbacks{OnDone: func(err error) { done <- err }}) {
		t.Fatalf("render rejected: %s", c.ErrorMessage())
	}

	c.Pause()
	if c.State() != StatePaused {
		t.Errorf("expected StatePaused, got %s", c.State())
	}
	c.Resume()
	if c.State() != StateRendering {
		t.Errorf("expected StateRendering after resume, got %s", c.State())
	}

	close(gate)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("job failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}
}

func TestLoadDiscardsPreviousJob(t *testing.T) {
	c := NewController()
	c.SetSurface(&stubSurface{})
	if err := loadMarkup(t, c, testMarkup); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	done := make(chan error, 1)
	cfg := &config.Config{FPS: 60, FrameCount: 2}
	if !c.Render(cfg, sampler.Callbacks{OnDone: func(err error) { done <- err }}) {
		t.Fatalf("render rejected: %s", c.ErrorMessage())
	}
	<-done

	if err := loadMarkup(t, c, testMarkup); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if len(c.Frames()) != 0 {
		t.Error("previous job frames survived a new load")
	}
	if c.State() != StateReady {
		t.Errorf("expected StateReady after reload, got %s", c.State())
	}
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	c := NewController()
	if err := loadMarkup(t, c, 42); err == nil {
		t.Error("expected an error for an unsupported source type")
	}
}
