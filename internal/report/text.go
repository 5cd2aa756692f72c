package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tomorrownow/PyFCM/internal/fcm"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	neutralStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// WriteChangesText writes an aligned two-column table of changes. Positive
// deltas are green and negative ones red when color is true.
func WriteChangesText(w io.Writer, changes []fcm.ConceptChange, color bool) error {
	width := len("concept")
	for _, c := range changes {
		width = max(width, len(c.Concept))
	}

	var sb strings.Builder
	sb.WriteString(render(headerStyle, color, fmt.Sprintf("%-*s  %s", width, "concept", "delta")))
	sb.WriteString("\n")
	for _, c := range changes {
		value := fmt.Sprintf("%+.6f", c.Delta)
		style := neutralStyle
		switch {
		case c.Delta > 0:
			style = positiveStyle
		case c.Delta < 0:
			style = negativeStyle
		}
		fmt.Fprintf(&sb, "%-*s  %s\n", width, c.Concept, render(style, color, value))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteValuesText writes an aligned two-column table of activations.
func WriteValuesText(w io.Writer, values []ConceptValue, color bool) error {
	width := len("concept")
	for _, v := range values {
		width = max(width, len(v.Concept))
	}

	var sb strings.Builder
	sb.WriteString(render(headerStyle, color, fmt.Sprintf("%-*s  %s", width, "concept", "activation")))
	sb.WriteString("\n")
	for _, v := range values {
		fmt.Fprintf(&sb, "%-*s  %.6f\n", width, v.Concept, v.Value)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func render(style lipgloss.Style, color bool, s string) string {
	if !color {
		return s
	}
	return style.Render(s)
}
