package logging

import (
	"context"
	"log/slog"

	"github.com/tomorrownow/PyFCM/internal/fcm"
)

// SolveObserver reports engine solves to a slog.Logger and a RunLogger.
// Converged solves go out at trace level, non-converged ones at warn.
// Either sink may be nil.
type SolveObserver struct {
	Logger *slog.Logger
	Runs   *RunLogger
}

// ObserveSolve implements fcm.Observer.
func (o *SolveObserver) ObserveSolve(ev fcm.SolveEvent) {
	if o.Logger != nil {
		level := LevelTrace
		msg := "solve converged"
		if !ev.Converged {
			level = slog.LevelWarn
			msg = "solve hit iteration cap"
		}
		o.Logger.Log(context.Background(), level, msg,
			"kind", ev.Kind,
			"rule", ev.Rule.String(),
			"squash", ev.Squash.String(),
			"lambda", ev.Lambda,
			"concepts", ev.Concepts,
			"clamped", ev.Clamped,
			"iterations", ev.Iterations,
			"residual", ev.Residual,
		)
	}

	o.Runs.Log(map[string]any{
		"event":      "solve",
		"kind":       string(ev.Kind),
		"rule":       ev.Rule.String(),
		"squash":     ev.Squash.String(),
		"lambda":     ev.Lambda,
		"clamped":    ev.Clamped,
		"iterations": ev.Iterations,
		"residual":   ev.Residual,
		"converged":  ev.Converged,
	})
}
