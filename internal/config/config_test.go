package config

import (
	"math"
	"path/filepath"
	"testing"
)

func TestReconcileDerivesFrameCount(t *testing.T) {
	tests := []struct {
		fps      float64
		duration float64
		expected int
	}{
		{60, 1000, 60},
		{30, 1000, 30},
		{60, 500, 30},
		{24, 2000, 48},
		{29.97, 1000, 30},
		{60, 1025, 62}, // round(61.5) = 62
	}

	for _, tt := range tests {
		cfg := &Config{FPS: tt.fps, TotalDurationMs: tt.duration}
		if err := cfg.Reconcile(); err != nil {
			t.Fatalf("Reconcile(fps=%v, dur=%v) failed: %v", tt.fps, tt.duration, err)
		}
		if cfg.FrameCount != tt.expected {
			t.Errorf("fps=%v dur=%v: expected %d frames, got %d", tt.fps, tt.duration, tt.expected, cfg.FrameCount)
		}
	}
}

func TestReconcileRejectsInconsistentTriple(t *testing.T) {
	cfg := &Config{FPS: 60, TotalDurationMs: 1000, FrameCount: 59}
	if err := cfg.Reconcile(); err == nil {
		t.Fatal("expected error for inconsistent fps/duration/frameCount triple")
	}

	cfg = &Config{FPS: 60, TotalDurationMs: 1000, FrameCount: 60}
	if err := cfg.Reconcile(); err != nil {
		t.Fatalf("consistent triple rejected: %v", err)
	}
}

func TestReconcileDerivesThirdMember(t *testing.T) {
	// fps + frameCount -> duration
	cfg := &Config{FPS: 30, FrameCount: 90}
	if err := cfg.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if math.Abs(cfg.TotalDurationMs-3000) > 0.0001 {
		t.Errorf("expected duration 3000ms, got %f", cfg.TotalDurationMs)
	}

	// duration + frameCount -> fps
	cfg = &Config{TotalDurationMs: 2000, FrameCount: 50}
	if err := cfg.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if math.Abs(cfg.FPS-25) > 0.0001 {
		t.Errorf("expected fps 25, got %f", cfg.FPS)
	}
}

func TestReconcileDefaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if cfg.FPS != DefaultFPS || cfg.TotalDurationMs != DefaultDurationMs {
		t.Errorf("expected defaults %v/%v, got %v/%v", DefaultFPS, DefaultDurationMs, cfg.FPS, cfg.TotalDurationMs)
	}
	if cfg.FrameCount != 60 {
		t.Errorf("expected 60 frames from defaults, got %d", cfg.FrameCount)
	}
}

func TestReconcileRejectsZeroFrames(t *testing.T) {
	cfg := &Config{FPS: 1, TotalDurationMs: 100}
	if err := cfg.Reconcile(); err == nil {
		t.Error("expected error when the configuration yields zero frames")
	}

	cfg = &Config{FPS: -1}
	if err := cfg.Reconcile(); err == nil {
		t.Error("expected error for negative fps")
	}
}

func TestProfileWriteRead(t *testing.T) {
	profile := &Profile{
		Name:       "shorts",
		FPS:        30,
		DurationMs: 2500,
		Width:      720,
		Height:     1280,
		Quality:    23,
	}

	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := WriteProfile(profile, path); err != nil {
		t.Fatalf("WriteProfile failed: %v", err)
	}

	read, err := ReadProfile(path)
	if err != nil {
		t.Fatalf("ReadProfile failed: %v", err)
	}
	if read.Name != profile.Name || read.FPS != profile.FPS || read.Width != profile.Width {
		t.Errorf("profile mismatch: expected %+v, got %+v", profile, read)
	}

	cfg := &Config{}
	read.Apply(cfg)
	if cfg.FPS != 30 || cfg.TotalDurationMs != 2500 || cfg.Height != 1280 {
		t.Errorf("Apply produced unexpected config: %+v", cfg)
	}
}
