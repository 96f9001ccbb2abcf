package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"MapReveal/internal/state"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const appDirName = "MapReveal"

type Config struct {
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
	Reveal   RevealConfig  `yaml:"reveal"`
	GM       ViewConfig    `yaml:"gm"`
	Player   ViewConfig    `yaml:"player"`
	Sync     SyncConfig    `yaml:"sync"`
	Network  NetworkConfig `yaml:"network"`
}

type RevealConfig struct {
	// Tool is the shape selected at startup: paint or area.
	Tool         string  `yaml:"tool"`
	BrushRadius  float64 `yaml:"brush_radius"`
	BakeOnCommit bool    `yaml:"bake_on_commit"`
}

type ViewConfig struct {
	FogColor string `yaml:"fog_color"`
	Follow   bool   `yaml:"follow"`
}

type SyncConfig struct {
	AutoPush bool `yaml:"auto_push"`
	ZoomFit  bool `yaml:"zoom_fit"`
}

type NetworkConfig struct {
	Enabled   bool `yaml:"enabled"`
	Port      int  `yaml:"port"`
	Advertise bool `yaml:"advertise"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Reveal:   RevealConfig{Tool: "paint", BrushRadius: 50},
		GM:       ViewConfig{FogColor: "#ffffff80", Follow: true},
		Player:   ViewConfig{FogColor: "#ffffffff"},
		Sync:     SyncConfig{AutoPush: true, ZoomFit: true},
		Network:  NetworkConfig{Port: 8888, Advertise: true},
	}
}

// DefaultPath returns <user config dir>/MapReveal/mapreveal.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, "mapreveal.yaml"), nil
}

// Load reads the config at path over the defaults. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, validate(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Reveal.BrushRadius <= 0 {
		return fmt.Errorf("%w: reveal.brush_radius must be positive", ErrInvalid)
	}
	if _, err := state.ParseTool(cfg.Reveal.Tool); err != nil {
		return fmt.Errorf("%w: reveal.tool: %v", ErrInvalid, err)
	}
	if _, err := ParseColor(cfg.GM.FogColor); err != nil {
		return fmt.Errorf("%w: gm.fog_color: %v", ErrInvalid, err)
	}
	if _, err := ParseColor(cfg.Player.FogColor); err != nil {
		return fmt.Errorf("%w: player.fog_color: %v", ErrInvalid, err)
	}
	if cfg.Network.Port < 1 || cfg.Network.Port > 65535 {
		return fmt.Errorf("%w: network.port %d out of range", ErrInvalid, cfg.Network.Port)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// EnsureDataDir resolves and creates the data directory. The application
// cannot run without it.
func (c *Config) EnsureDataDir() (string, error) {
	dir := c.DataDir
	if strings.TrimSpace(dir) == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locating data dir: %w", err)
		}
		dir = filepath.Join(base, appDirName)
	}
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding data dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("checking data dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("data dir %s is not a directory", dir)
	}
	return dir, nil
}

// GMFog returns the parsed GM fog color. Load has already validated it.
func (c *Config) GMFog() color.NRGBA {
	col, _ := ParseColor(c.GM.FogColor)
	return col
}

// StartTool returns the parsed startup tool.
func (c *Config) StartTool() state.Tool {
	t, _ := state.ParseTool(c.Reveal.Tool)
	return t
}

// PlayerFog returns the parsed player fog color.
func (c *Config) PlayerFog() color.NRGBA {
	col, _ := ParseColor(c.Player.FogColor)
	return col
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// ParseLevel maps a log level name to slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
