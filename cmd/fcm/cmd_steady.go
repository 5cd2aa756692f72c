package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomorrownow/PyFCM/internal/report"
)

func newSteadyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steady",
		Short: "Solve a map to its free-running steady state",
		Long: `Iterate the map from the all-ones activation vector until successive
vectors differ by at most epsilon, and print the fixed point.

Examples:
  fcm steady --matrix model.csv
  fcm steady --matrix model.xlsx --rule k --squash tanh --json`,
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

			m, err := s.loadMap(cmd)
			if err != nil {
				return err
			}
			if s.cfg.Noise.Threshold != 0 {
				m = m.WithNoiseReduced(s.cfg.Noise.Threshold)
			}

			sol, err := s.engine.SteadyState(m)
			if err != nil {
				return fmt.Errorf("steady state: %w", err)
			}

			env := s.envelope(cmd, report.KindSteady).WithSteady(m.Concepts(), sol)
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
				return report.WriteValuesCSV(w, env.Activation)
			default:
				if err := report.WriteValuesText(w, env.Activation, s.useColor(cmd)); err != nil {
					return err
				}
				fmt.Fprintf(w, "\nconverged after %d iterations (%s, %s)\n",
					sol.Iterations, env.Rule, env.Squash)
				return nil
			}
		},
	}

	addModelFlags(cmd)
	cmd.Flags().String("format", "text", "Output format: text, json or csv")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")

	return cmd
}
