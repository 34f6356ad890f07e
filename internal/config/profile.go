package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is a named sampling preset stored as a YAML file
type Profile struct {
	Name          string  `yaml:"name"`
	FPS           float64 `yaml:"fps"`
	DurationMs    float64 `yaml:"duration_ms"`
	FrameCount    int     `yaml:"frame_count"`
	BeginOffsetMs float64 `yaml:"begin_offset_ms"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Quality       int     `yaml:"quality"`
	QRLink        string  `yaml:"qr_link,omitempty"`
}

// WriteProfile writes a profile to a YAML file
func WriteProfile(profile *Profile, path string) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadProfile reads a profile from a YAML file
func ReadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

// Apply copies the profile members onto cfg. Zero members are skipped so the
// profile only overrides what it actually names.
func (p *Profile) Apply(cfg *Config) {
	if p.FPS > 0 {
		cfg.FPS = p.FPS
	}
	if p.DurationMs > 0 {
		cfg.TotalDurationMs = p.DurationMs
	}
	if p.FrameCount > 0 {
		cfg.FrameCount = p.FrameCount
	}
	if p.BeginOffsetMs > 0 {
		cfg.BeginOffsetMs = p.BeginOffsetMs
	}
	if p.Width > 0 {
		cfg.Width = p.Width
	}
	if p.Height > 0 {
		cfg.Height = p.Height
	}
	if p.Quality > 0 {
		cfg.Quality = p.Quality
	}
	if p.QRLink != "" {
		cfg.QRLink = p.QRLink
	}
}
