package main

import (
	"github.com/spf13/cobra"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/report"
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Clamp concepts and report how the rest of the map changes",
		Long: `Solve the map twice, once free-running and once with the clamped
concepts held at their values after every step, and report the
per-concept difference. Clamped concepts always report 0.

CSV output is one "concept,delta" line per concept with no header.

Examples:
  fcm scenario --matrix model.csv --clamp c1=1
  fcm scenario --matrix model.csv --clamp Rainfall=0.8 --principle "Crop yield" --json
  fcm scenario --matrix model.csv --clamp c1=1 --format csv -o changes.csv`,
		RunE: func(cmd *cobra.Command, args []string) (retErr error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() {
				if err := s.close(); err != nil && retErr == nil {
					retErr = err
				}
			}()

			format, err := s.outputFormat(cmd, "text", "json", "csv")
			if err != nil {
				return err
			}

			specs, _ := cmd.Flags().GetStringArray("clamp")
			clamp, err := parseClamps(specs)
			if err != nil {
				return err
			}
			principles, _ := cmd.Flags().GetStringArray("principle")
			name, _ := cmd.Flags().GetString("name")

			m, err := s.loadMap(cmd)
			if err != nil {
				return err
			}

			res, err := s.engine.RunScenario(m, fcm.Scenario{
				Name:           name,
				Clamp:          clamp,
				Principles:     principles,
				NoiseThreshold: s.cfg.Noise.Threshold,
			})
			if err != nil {
				return err
			}
			s.logger.Debug("scenario solved",
				"name", name,
				"baseline_iterations", res.BaselineIterations,
				"scenario_iterations", res.ScenarioIterations)

			env := s.envelope(cmd, report.KindScenario).WithScenario(clamp, res)
			s.logRun(env)

			w, closeOut, err := openOutput(cmd)
			if err != nil {
				return err
			}
			defer keepCloseErr(&retErr, closeOut)

			switch format {
			case "json":
				return report.WriteJSON(w, env)
			case "csv":
				return report.WriteChangesCSV(w, env.Changes)
			default:
				return report.WriteChangesText(w, principleOrder(m, res, principles), s.useColor(cmd))
			}
		},
	}

	addModelFlags(cmd)
	cmd.Flags().StringArray("clamp", nil, "Clamp a concept: name=value (repeatable)")
	cmd.Flags().StringArray("principle", nil, "Report only this concept's change (repeatable)")
	cmd.Flags().String("name", "", "Scenario label for reports")
	cmd.Flags().String("format", "text", "Output format: text, json or csv")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	cmd.MarkFlagRequired("clamp")

	return cmd
}

// principleOrder returns the principle changes in the order they were
// requested, or every change when none were.
func principleOrder(m *fcm.Map, res *fcm.ScenarioResult, principles []string) []fcm.ConceptChange {
	if len(principles) == 0 {
		return res.OrderedChanges()
	}
	out := make([]fcm.ConceptChange, 0, len(principles))
	for _, p := range principles {
		idx, _ := m.Index(p)
		out = append(out, fcm.ConceptChange{Index: idx, Concept: p, Delta: res.PrincipleChanges[p]})
	}
	return out
}
