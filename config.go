package airspace

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the viewer settings. Zero-valued fields in a loaded file keep
// the values from DefaultConfig.
type Config struct {
	Window WindowConfig `yaml:"window"`
	Camera CameraConfig `yaml:"camera"`
	Scene  SceneConfig  `yaml:"scene"`
	Deploy DeployConfig `yaml:"deploy"`
	Feed   FeedConfig   `yaml:"feed"`
	Debug  bool         `yaml:"debug"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

type CameraConfig struct {
	FovDegrees    float32    `yaml:"fov_degrees"`
	Near          float32    `yaml:"near"`
	Far           float32    `yaml:"far"`
	Position      [3]float32 `yaml:"position"`
	DampingFactor float32    `yaml:"damping_factor"`
	// PolarMargin is subtracted from 90 degrees to form the polar clamp, in radians.
	PolarMargin float32 `yaml:"polar_margin"`
	RotateSpeed float32 `yaml:"rotate_speed"`
	PanSpeed    float32 `yaml:"pan_speed"`
	ZoomStep    float32 `yaml:"zoom_step"`
	MinDistance float32 `yaml:"min_distance"`
	MaxDistance float32 `yaml:"max_distance"`
}

type SceneConfig struct {
	SkyColor         uint32  `yaml:"sky_color"`
	GroundColor      uint32  `yaml:"ground_color"`
	FogNear          float32 `yaml:"fog_near"`
	FogFar           float32 `yaml:"fog_far"`
	AmbientIntensity float32 `yaml:"ambient_intensity"`
	SunIntensity     float32 `yaml:"sun_intensity"`
	OverlayHeight    float32 `yaml:"overlay_height"`
}

type DeployConfig struct {
	Altitude float32 `yaml:"altitude"`
}

type FeedConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
	WebSocketURL string `yaml:"websocket_url"`
}

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			Title:  "Airspace",
		},
		Camera: CameraConfig{
			FovDegrees:    60,
			Near:          0.1,
			Far:           20000,
			Position:      [3]float32{1000, 1000, 1000},
			DampingFactor: 0.05,
			PolarMargin:   0.1,
			RotateSpeed:   1.0,
			PanSpeed:      1.0,
			ZoomStep:      0.95,
			MinDistance:   10,
			MaxDistance:   15000,
		},
		Scene: SceneConfig{
			SkyColor:         0x87CEEB,
			GroundColor:      0x3a7c3a,
			FogNear:          1000,
			FogFar:           10000,
			AmbientIntensity: 0.6,
			SunIntensity:     0.8,
			OverlayHeight:    1,
		},
		Deploy: DeployConfig{
			Altitude: 10,
		},
	}
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Camera.FovDegrees <= 0 || c.Camera.FovDegrees >= 180 {
		errs = append(errs, fmt.Errorf("camera fov must be in (0,180), got %v", c.Camera.FovDegrees))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, fmt.Errorf("camera near/far invalid: %v/%v", c.Camera.Near, c.Camera.Far))
	}
	if c.Camera.DampingFactor <= 0 || c.Camera.DampingFactor > 1 {
		errs = append(errs, fmt.Errorf("camera damping must be in (0,1], got %v", c.Camera.DampingFactor))
	}
	if c.Camera.PolarMargin <= 0 || c.Camera.PolarMargin >= math.Pi/2 {
		errs = append(errs, fmt.Errorf("camera polar margin must be in (0,pi/2), got %v", c.Camera.PolarMargin))
	}
	if c.Camera.ZoomStep <= 0 || c.Camera.ZoomStep >= 1 {
		errs = append(errs, fmt.Errorf("camera zoom step must be in (0,1), got %v", c.Camera.ZoomStep))
	}
	if c.Camera.MinDistance <= 0 || c.Camera.MaxDistance <= c.Camera.MinDistance {
		errs = append(errs, fmt.Errorf("camera distance limits invalid: %v/%v", c.Camera.MinDistance, c.Camera.MaxDistance))
	}
	return errors.Join(errs...)
}
