package engine

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/shaderview/engine/program"
	"github.com/Carmen-Shannon/shaderview/engine/renderer"
)

// frameInput turns window events into the per-frame constants block. It is only touched from
// the window thread.
type frameInput struct {
	start     time.Time
	constants program.Constants
	width     int
	height    int
}

func newFrameInput(start time.Time, width, height int) *frameInput {
	in := &frameInput{start: start, constants: program.NewConstants()}
	in.resize(width, height)
	return in
}

func (in *frameInput) resize(width, height int) {
	in.width, in.height = width, height
	in.constants.SetResolution(width, height)
}

func (in *frameInput) move(x, y float64) {
	in.constants.Mouse = program.CursorToUV(x, y, in.width, in.height)
}

func (in *frameInput) click(x, y float64) {
	in.constants.Click = program.CursorToUV(x, y, in.width, in.height)
}

// at returns the constants for a frame drawn at now.
func (in *frameInput) at(now time.Time) program.Constants {
	in.constants.Time = float32(now.Sub(in.start).Seconds())
	return in.constants
}

// logUniforms writes one record per uniform with every field as an attribute.
func logUniforms(logger *slog.Logger, uniforms []renderer.UniformSnapshot) {
	if len(uniforms) == 0 {
		logger.Info("no uniforms")
		return
	}
	for _, u := range uniforms {
		attrs := make([]any, 0, 6+len(u.Fields))
		attrs = append(attrs, "uniform", u.Name, "set", u.Group, "binding", u.Binding)
		for _, f := range u.Fields {
			attrs = append(attrs, slog.String(f.Name, f.Value.String()))
		}
		logger.Info("uniform values", attrs...)
	}
}
