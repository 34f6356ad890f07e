// Package sampler owns the render loop: it advances the animation clock in
// fixed steps, triggers snapshot extraction, application and rasterization
// for each step, and decides whether to continue, pause or finish. Frames are
// produced strictly in increasing index order with at most one rasterization
// in flight.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/raster"
	"github.com/ivlev/svg2video/internal/scene"
	"github.com/ivlev/svg2video/internal/snapshot"
)

// State of the sampling job.
type State int

const (
	Idle State = iota
	Sampling
	Paused
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ErrIntegrity marks internal invariant violations: a malformed scene, a
// snapshot/clone shape mismatch. Fatal for the current job, unrecoverable,
// distinct from configuration and load errors which are reported at the
// boundary.
var ErrIntegrity = errors.New("нарушение целостности конвейера")

// Callbacks are the external collaborator's hooks. OnProgress fires before
// the done-counter is incremented for the just-produced frame; OnFrame hands
// the frame over; OnDone fires once with nil on completion or with the fatal
// error.
type Callbacks struct {
	OnProgress func(done, total int)
	OnFrame    func(*raster.Frame)
	OnDone     func(error)
}

// Sampler drives one render job. All cross-goroutine state sits behind mu;
// the loop goroutine is the only writer of the scene's animation clock.
type Sampler struct {
	mu          sync.Mutex
	state       State
	scene       *scene.Scene
	surface     raster.Rasterizer
	cb          Callbacks
	fps         float64
	beginMs     float64
	total       int
	done        int
	interrupted bool
	looping     bool
	err         error
}

// New builds a sampler for a reconciled configuration. cfg must already have
// passed Reconcile.
func New(sc *scene.Scene, surface raster.Rasterizer, cfg *config.Config, cb Callbacks) *Sampler {
	return &Sampler{
		scene:   sc,
		surface: surface,
		cb:      cb,
		fps:     cfg.FPS,
		beginMs: cfg.BeginOffsetMs,
		total:   cfg.FrameCount,
	}
}

// Start launches the sampling loop. It returns immediately; completion is
// reported through OnDone.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("сэмплирование уже запущено (состояние %s)", s.state)
	}
	if s.scene == nil || s.scene.Root() == nil {
		return fmt.Errorf("%w: сцена не загружена", ErrIntegrity)
	}
	s.state = Sampling
	s.looping = true
	go s.loop()
	return nil
}

// loop runs one step at a time on a single goroutine. It parks on pause and
// is relaunched by Resume, which keeps the call stack flat across thousands
// of frames and lets pause requests take effect between steps.
func (s *Sampler) loop() {
	for {
		s.mu.Lock()
		if s.interrupted {
			s.looping = false
			s.state = Paused
			s.mu.Unlock()
			return
		}
		if s.done >= s.total {
			s.looping = false
			s.state = Finished
			cb := s.cb.OnDone
			s.mu.Unlock()
			if cb != nil {
				cb(nil)
			}
			return
		}
		done := s.done
		s.mu.Unlock()

		if err := s.step(done); err != nil {
			s.fail(err)
			return
		}
	}
}

type rasterResult struct {
	frame *raster.Frame
	err   error
}

// step produces exactly one frame at sample index done.
func (s *Sampler) step(done int) error {
	sc := s.scene
	if sc == nil || sc.Root() == nil {
		return fmt.Errorf("%w: шаг без загруженного элемента", ErrIntegrity)
	}

	// Время считается заново на каждом шаге, а не накоплением — иначе
	// за тысячи кадров набегает дрейф.
	tMs := s.beginMs + math.Round(1000*float64(done))/s.fps

	sc.PauseAnimations()
	sc.SetCurrentTime(tMs)

	clone := sc.CloneStripped()
	snap := snapshot.Extract(sc, sc.Root())
	if err := snapshot.Apply(clone, snap); err != nil {
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	markup, err := scene.SerializeStandalone(clone)
	if err != nil {
		return err
	}

	// Единственная точка приостановки: декодирование/отрисовка кадра.
	// Следующий шаг не начнётся, пока эта растеризация не завершится.
	ch := make(chan rasterResult, 1)
	go func() {
		f, err := s.surface.Rasterize(markup, done)
		ch <- rasterResult{frame: f, err: err}
	}()
	res := <-ch
	if res.err != nil {
		return res.err
	}

	// Прогресс сообщается со значением счётчика до инкремента.
	if s.cb.OnProgress != nil {
		s.cb.OnProgress(done, s.total)
	}

	s.mu.Lock()
	s.done++
	s.mu.Unlock()

	if s.cb.OnFrame != nil {
		s.cb.OnFrame(res.frame)
	}
	return nil
}

// Pause requests an interruption. Safe at any point: an in-flight
// rasterization still completes and delivers its frame, after which the loop
// parks instead of scheduling the next step.
func (s *Sampler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Sampling {
		s.interrupted = true
	}
}

// Resume clears the interruption and relaunches the loop, but only when no
// loop goroutine is currently running. No-op when finished, failed or not
// paused.
func (s *Sampler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Finished || s.state == Failed {
		return
	}
	if !s.interrupted && s.state != Paused {
		return
	}
	s.interrupted = false
	if !s.looping {
		s.state = Sampling
		s.looping = true
		go s.loop()
	}
}

func (s *Sampler) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.state = Failed
	s.looping = false
	cb := s.cb.OnDone
	s.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// State reports the current lifecycle state.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsActive is true until the job finishes or fails.
func (s *Sampler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != Finished && s.state != Failed
}

// Done reports how many frames have been produced so far.
func (s *Sampler) Done() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Total reports the configured frame count.
func (s *Sampler) Total() int {
	return s.total
}

// Err returns the fatal error after a failure.
func (s *Sampler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
