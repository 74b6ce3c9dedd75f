// Package check compiles and describes shader files without opening a window or a GPU device.
// It backs the "shaderview check" command.
package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/program/compiler"
	"github.com/Carmen-Shannon/shaderview/engine/program/spvreflect"
)

// Result is the outcome of checking one shader file.
type Result struct {
	Path     string
	Frontend string
	Layouts  []program.UniformLayout
	Duration time.Duration
	Err      error
}

// Failed reports whether the file was rejected.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Checker validates shader files the same way the preview does before it allocates GPU objects.
type Checker interface {
	// Check compiles, reflects and describes every path concurrently.
	//
	// Parameters:
	//   - ctx: cancels in-flight external compiles
	//   - paths: the fragment shader files
	//
	// Returns:
	//   - []Result: one result per path, in argument order
	Check(ctx context.Context, paths ...string) []Result
}

type checker struct {
	workers  int
	entry    string
	frontend []compiler.FrontendBuilderOption
	logger   *slog.Logger
}

var _ Checker = &checker{}

// NewChecker creates a Checker.
//
// Parameters:
//   - options: functional options applied after defaults
//
// Returns:
//   - Checker: the checker
func NewChecker(options ...CheckerBuilderOption) Checker {
	c := &checker{workers: 4, entry: "main", logger: slog.Default()}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *checker) Check(ctx context.Context, paths ...string) []Result {
	results := make([]Result, len(paths))
	if len(paths) == 0 {
		return results
	}

	pool := worker.NewDynamicWorkerPool(min(c.workers, len(paths)), len(paths), time.Second)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				results[i] = c.checkFile(ctx, path)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return results
}

func (c *checker) checkFile(ctx context.Context, path string) Result {
	start := time.Now()
	f := compiler.NewFrontend(path, c.frontend...)
	r := Result{Path: path, Frontend: f.Name()}

	code, err := f.CompileFragment(ctx, path)
	if err == nil {
		var mod *spvreflect.Module
		if mod, err = spvreflect.Reflect(code, c.entry); err == nil {
			r.Layouts, err = program.Describe(mod)
		}
	}
	r.Err = err
	r.Duration = time.Since(start)
	c.logger.Debug("checked", "path", path, "frontend", r.Frontend, "duration", r.Duration, "ok", err == nil)
	return r
}

// Print writes a human-readable report of results: a layout table for each accepted file and
// the diagnostics for each rejected one.
//
// Parameters:
//   - w: the destination
//   - results: the results to report
//
// Returns:
//   - int: the number of rejected files
func Print(w io.Writer, results []Result) int {
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
			printFailure(w, r)
			continue
		}
		fmt.Fprintf(w, "ok   %s (%s)\n", r.Path, r.Frontend)
		if len(r.Layouts) == 0 {
			fmt.Fprintln(w, "     no uniforms")
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "     GROUP\tBINDING\tUNIFORM\tFIELD\tKIND\tOFFSET\tSIZE")
		for _, l := range r.Layouts {
			for _, f := range l.Fields {
				fmt.Fprintf(tw, "     %d\t%d\t%s\t%s\t%s\t%d\t%d\n", l.Set, l.Binding, l.Name, f.Name, f.Kind, f.Offset, f.Kind.Size())
			}
			for _, f := range l.Mismatched() {
				fmt.Fprintf(tw, "     \t\t%s\t%s\tpacked at %d, declared %d\t\t\n", l.Name, f.Name, f.Offset, f.Declared)
			}
		}
		tw.Flush()
	}
	return failed
}

func printFailure(w io.Writer, r Result) {
	var ce *compiler.CompileError
	if errors.As(r.Err, &ce) && len(ce.Diagnostics) > 0 {
		fmt.Fprintf(w, "FAIL %s (%s)\n", r.Path, r.Frontend)
		for _, d := range ce.Diagnostics {
			fmt.Fprintf(w, "     %s\n", d)
		}
		return
	}
	fmt.Fprintf(w, "FAIL %s (%s): %v\n", r.Path, r.Frontend, r.Err)
}
