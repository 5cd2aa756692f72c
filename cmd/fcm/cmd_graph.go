package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomorrownow/PyFCM/internal/fcm"
	"github.com/tomorrownow/PyFCM/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Visualize a map",
		Long: `Output the map in DOT (Graphviz) or JSON format. With --clamp, the
scenario is solved and nodes are colored by the sign of their change.

Examples:
  fcm graph --matrix model.csv | dot -Tsvg > model.svg
  fcm graph --matrix model.csv --clamp c1=1 --format json`,
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

			formatFlag, _ := cmd.Flags().GetString("format")
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				formatFlag = string(visualization.FormatJSON)
			}
			format, err := visualization.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			m, err := s.loadMap(cmd)
			if err != nil {
				return err
			}

			var overlay *visualization.Overlay
			if specs, _ := cmd.Flags().GetStringArray("clamp"); len(specs) > 0 {
				clamp, err := parseClamps(specs)
				if err != nil {
					return err
				}
				res, err := s.engine.RunScenario(m, fcm.Scenario{Clamp: clamp, NoiseThreshold: s.cfg.Noise.Threshold})
				if err != nil {
					return err
				}
				overlay = &visualization.Overlay{Changes: res.Changes, Clamped: clamp}
			}

			w, closeOut, err := openOutput(cmd)
			if err != nil {
				return err
			}
			defer keepCloseErr(&retErr, closeOut)

			switch format {
			case visualization.FormatDOT:
				fmt.Fprint(w, visualization.RenderDOT(m, overlay))
			case visualization.FormatJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(visualization.RenderJSON(m, overlay)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
			}
			return nil
		},
	}

	addModelFlags(cmd)
	cmd.Flags().StringArray("clamp", nil, "Clamp a concept to color nodes by scenario change: name=value (repeatable)")
	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")

	return cmd
}
