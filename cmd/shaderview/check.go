package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/shaderview/engine/check"
	"github.com/Carmen-Shannon/shaderview/engine/program/compiler"
)

func newCheckCommand(f *rootFlags) *cobra.Command {
	workers := runtime.NumCPU()
	cmd := &cobra.Command{
		Use:   "check [flags] <shader>...",
		Short: "Compile shaders and print their uniform layouts without opening a window",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				return err
			}
			for _, a := range args {
				if err := requireFile(a); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, logger, err := f.load(cmd, args[0])
			if err != nil {
				return err
			}
			glslcArgs, err := cfg.GlslcArgs()
			if err != nil {
				return err
			}

			c := check.NewChecker(
				check.WithWorkers(workers),
				check.WithLogger(logger),
				check.WithEntryPoint(cfg.Compiler.EntryPoint),
				check.WithFrontendOptions(
					compiler.WithGlslc(cfg.Compiler.Glslc),
					compiler.WithGlslcArgs(glslcArgs...),
					compiler.WithTargetEnv(cfg.Compiler.TargetEnv),
				),
			)
			results := c.Check(cmd.Context(), args...)
			if failed := check.Print(cmd.OutOrStdout(), results); failed > 0 {
				cmd.SilenceErrors = true
				return fmt.Errorf("%d of %d shaders failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "jobs", "j", workers, "files compiled at once")
	return cmd
}
