package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomorrownow/PyFCM/internal/constants"
	"github.com/tomorrownow/PyFCM/internal/report"
	"github.com/tomorrownow/PyFCM/internal/sensitivity"
)

func newSensitivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Sweep concepts across clamp levels and record principle responses",
		Long: `Clamp each --concept in turn at every level and record how each
--principle moves relative to the free-running steady state. The baseline
is solved once and shared by every level.

Examples:
  fcm sensitivity --matrix model.csv --concept c1 --principle c2
  fcm sensitivity --matrix model.csv --concept c1 --concept c4 --levels 11 --format xlsx -o sweep.xlsx`,
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

			format, err := s.outputFormat(cmd, "csv", "json", "xlsx")
			if err != nil {
				return err
			}
			if output, _ := cmd.Flags().GetString("output"); format == "xlsx" && output == "" {
				return fmt.Errorf("xlsx output requires --output")
			}

			concepts, _ := cmd.Flags().GetStringArray("concept")
			principles, _ := cmd.Flags().GetStringArray("principle")

			var levels []float64
			if cmd.Flags().Changed("levels") || cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
				n, _ := cmd.Flags().GetInt("levels")
				lo, _ := cmd.Flags().GetFloat64("min")
				hi, _ := cmd.Flags().GetFloat64("max")
				if levels, err = sensitivity.Levels(n, lo, hi); err != nil {
					return err
				}
			}

			m, err := s.loadMap(cmd)
			if err != nil {
				return err
			}

			rep, err := sensitivity.Sweep(s.engine, m, sensitivity.Request{
				Concepts:       concepts,
				Principles:     principles,
				Levels:         levels,
				NoiseThreshold: s.cfg.Noise.Threshold,
			})
			if err != nil {
				return err
			}
			s.logger.Debug("sweep finished", "series", len(rep.Series), "levels", len(rep.Levels))

			env := s.envelope(cmd, report.KindSensitivity)
			env.Sensitivity = rep
			s.logRun(env)

			w, closeOut, err := openOutput(cmd)
			if err != nil {
				return err
			}
			defer keepCloseErr(&retErr, closeOut)

			switch format {
			case "json":
				return report.WriteJSON(w, env)
			case "xlsx":
				return report.WriteSensitivityXLSX(w, rep)
			default:
				return report.WriteSensitivityCSV(w, rep)
			}
		},
	}

	addModelFlags(cmd)
	cmd.Flags().StringArray("concept", nil, "Concept to sweep (repeatable)")
	cmd.Flags().StringArray("principle", nil, "Concept whose response is recorded (repeatable, default: all)")
	cmd.Flags().Int("levels", constants.DefaultSensitivityLevels, "Number of evenly spaced clamp levels")
	cmd.Flags().Float64("min", constants.DefaultSensitivityMin, "Lowest clamp level")
	cmd.Flags().Float64("max", constants.DefaultSensitivityMax, "Highest clamp level")
	cmd.Flags().String("format", "csv", "Output format: csv, json or xlsx")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	cmd.MarkFlagRequired("concept")

	return cmd
}
