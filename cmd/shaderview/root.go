package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/shaderview/engine"
	"github.com/Carmen-Shannon/shaderview/engine/config"
	"github.com/Carmen-Shannon/shaderview/engine/logx"
)

// rootFlags holds the command-line overrides for the config file.
type rootFlags struct {
	config      string
	verbose     bool
	quiet       bool
	presentMode string
	watch       string
	glslc       string
	glslcArgs   string
	targetEnv   string
	entry       string
	software    bool
	profile     bool
	noColor     bool
}

func newRootCommand() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:   "shaderview [flags] <fragment-shader>",
		Short: "Live preview of a fragment shader that reloads on save",
		Long: "shaderview renders a fragment shader over the whole window and recompiles it every time\n" +
			"the file is saved. Files ending in .wgsl are compiled with naga, anything else with glslc.\n" +
			"Uniform blocks get default values of 1 and keep their values across reloads.",
		Args: shaderArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, logger, err := f.load(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return engine.NewEngine(args[0], cfg, engine.WithLogger(logger)).Run(ctx)
		},
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stdout)
	cmd.SetContext(context.Background())

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.config, "config", "c", "", "settings file (.toml, .yaml); default "+config.DefaultFile+" next to the shader")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")
	pf.BoolVar(&f.noColor, "no-color", false, "never color log levels")
	pf.StringVar(&f.glslc, "glslc", "", "glslc executable")
	pf.StringVar(&f.glslcArgs, "glslc-args", "", "extra glslc arguments, shell quoted")
	pf.StringVar(&f.targetEnv, "target-env", "", "glslc --target-env")
	pf.StringVar(&f.entry, "entry", "", "fragment entry point (default main)")

	fl := cmd.Flags()
	fl.StringVar(&f.presentMode, "present-mode", "", "vsync, uncapped or mailbox")
	fl.StringVar(&f.watch, "watch", "", "file watcher backend: auto, inotify or fsnotify")
	fl.BoolVar(&f.software, "software", false, "force the software fallback adapter")
	fl.BoolVar(&f.profile, "profile", false, "log frame rate and heap statistics")

	cmd.AddCommand(newCheckCommand(f))
	return cmd
}

// shaderArg accepts exactly one argument naming an existing file.
func shaderArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return err
	}
	return requireFile(args[0])
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("shader %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("shader %s is a directory", path)
	}
	return nil
}

// load resolves the config for shaderPath, applies the flags that were set and builds the logger.
func (f *rootFlags) load(cmd *cobra.Command, shaderPath string) (*config.Config, *slog.Logger, error) {
	cfg, source, err := config.Resolve(shaderPath, f.config)
	if err != nil {
		return nil, nil, err
	}
	f.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	fallback, _ := logx.ParseLevel(cfg.Log.Level)
	logger := logx.NewLogger(os.Stderr, logx.LevelFromFlags(f.verbose, f.quiet, fallback), cfg.Log.Color)
	slog.SetDefault(logger)
	if source != "" {
		logger.Debug("config loaded", "file", source)
	}
	return cfg, logger, nil
}

func (f *rootFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("present-mode") {
		cfg.Render.PresentMode = f.presentMode
	}
	if changed("watch") {
		cfg.Watch.Backend = f.watch
	}
	if changed("software") {
		cfg.Render.ForceFallbackAdapter = f.software
	}
	if changed("profile") {
		cfg.Profile = f.profile
	}
	if changed("glslc") {
		cfg.Compiler.Glslc = f.glslc
	}
	if changed("glslc-args") {
		cfg.Compiler.GlslcArgs = f.glslcArgs
	}
	if changed("target-env") {
		cfg.Compiler.TargetEnv = f.targetEnv
	}
	if changed("entry") {
		cfg.Compiler.EntryPoint = f.entry
	}
	if f.noColor {
		cfg.Log.Color = false
	}
}
