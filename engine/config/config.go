// Package config loads shaderview settings from TOML or YAML files. Every setting has a default,
// so a file only needs the keys it changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/Carmen-Shannon/shaderview/engine/logx"
	"github.com/Carmen-Shannon/shaderview/engine/program/compiler"
	"github.com/Carmen-Shannon/shaderview/engine/program/watcher"
)

// DefaultFile is the file loaded from the shader's directory when no config file is named.
const DefaultFile = "shaderview.toml"

// Config holds every shaderview setting.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Render   RenderConfig   `toml:"render" yaml:"render"`
	Compiler CompilerConfig `toml:"compiler" yaml:"compiler"`
	Watch    WatchConfig    `toml:"watch" yaml:"watch"`
	Log      LogConfig      `toml:"log" yaml:"log"`

	// Profile logs frame rate and memory statistics every second at debug level.
	Profile bool `toml:"profile" yaml:"profile"`
}

// WindowConfig sets up the preview window.
type WindowConfig struct {
	// Title defaults to "shaderview - <file>".
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

// RenderConfig sets up the GPU surface.
type RenderConfig struct {
	// PresentMode is "vsync", "uncapped" or "mailbox".
	PresentMode string `toml:"present_mode" yaml:"present_mode"`

	// ForceFallbackAdapter requests a software adapter.
	ForceFallbackAdapter bool `toml:"force_fallback_adapter" yaml:"force_fallback_adapter"`
}

// CompilerConfig sets up shader compilation. Only EntryPoint applies to WGSL shaders.
type CompilerConfig struct {
	// EntryPoint is the fragment entry point. GLSL always compiles to "main".
	EntryPoint string `toml:"entry_point" yaml:"entry_point"`


	Glslc string `toml:"glslc" yaml:"glslc"`

	// GlslcArgs are extra glslc arguments in shell syntax, e.g. `-O -DQUALITY=2`.
	GlslcArgs string `toml:"glslc_args" yaml:"glslc_args"`

	TargetEnv string `toml:"target_env" yaml:"target_env"`
}

// WatchConfig sets up the file watcher.
type WatchConfig struct {
	// Backend is "auto", "inotify" or "fsnotify".
	Backend string `toml:"backend" yaml:"backend"`

	// DebounceMS is the fsnotify write-burst window in milliseconds.
	DebounceMS int `toml:"debounce_ms" yaml:"debounce_ms"`
}

// LogConfig sets up logging.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" yaml:"level"`

	// Color colors level names when standard error is a terminal.
	Color bool `toml:"color" yaml:"color"`
}

var presentModes = []string{"vsync", "uncapped", "mailbox"}

// Default returns the built-in settings.
//
// Returns:
//   - *Config: a new Config with every default applied
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:  800,
			Height: 800,
		},
		Render: RenderConfig{
			PresentMode: "mailbox",
		},
		Compiler: CompilerConfig{
			EntryPoint: "main",
			Glslc:      "glslc",
			TargetEnv:  "vulkan1.0",
		},
		Watch: WatchConfig{
			Backend:    string(watcher.BackendAuto),
			DebounceMS: 50,
		},
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
	}
}

// Load reads a config file over the defaults. The format is chosen by extension: ".toml",
// ".yaml" or ".yml". Unknown keys are errors.
//
// Parameters:
//   - path: the config file
//
// Returns:
//   - *Config: the validated settings
//   - error: a read, decode or validation error
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(c)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(c); errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Resolve loads the settings for a shader: the named file if explicit is not empty, else
// DefaultFile next to the shader when it exists, else the defaults.
//
// Parameters:
//   - shaderPath: the fragment shader file
//   - explicit: the config file named on the command line, or ""
//
// Returns:
//   - *Config: the settings
//   - string: the file the settings came from, or "" for the defaults
//   - error: a load error
func Resolve(shaderPath, explicit string) (*Config, string, error) {
	if explicit != "" {
		c, err := Load(explicit)
		return c, explicit, err
	}
	candidate := filepath.Join(filepath.Dir(shaderPath), DefaultFile)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
		return nil, "", err
	}
	c, err := Load(candidate)
	return c, candidate, err
}

// Validate checks every enumerated and numeric setting.
//
// Returns:
//   - error: the first invalid setting
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if !slices.Contains(presentModes, strings.ToLower(c.Render.PresentMode)) {
		return fmt.Errorf("render.present_mode %q must be one of %s", c.Render.PresentMode, strings.Join(presentModes, ", "))
	}
	if strings.TrimSpace(c.Compiler.EntryPoint) == "" {
		return errors.New("compiler.entry_point must not be empty")
	}
	if _, err := c.GlslcArgs(); err != nil {
		return fmt.Errorf("compiler.glslc_args: %w", err)
	}
	switch watcher.Backend(c.Watch.Backend) {
	case watcher.BackendAuto, watcher.BackendInotify, watcher.BackendFsnotify:
	default:
		return fmt.Errorf("watch.backend %q must be one of auto, inotify, fsnotify", c.Watch.Backend)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms %d must not be negative", c.Watch.DebounceMS)
	}
	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// GlslcArgs splits Compiler.GlslcArgs into arguments.
//
// Returns:
//   - []string: the arguments
//   - error: an error for unbalanced quotes
func (c *Config) GlslcArgs() ([]string, error) {
	return compiler.SplitArgs(c.Compiler.GlslcArgs)
}

// Debounce returns Watch.DebounceMS as a duration.
//
// Returns:
//   - time.Duration: the debounce window
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
