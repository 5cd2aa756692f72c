// Package visualization renders fuzzy cognitive maps as Graphviz DOT or as a
// JSON node/edge list.
package visualization

import (
	"fmt"
	"math"
	"strings"

	"github.com/tomorrownow/PyFCM/internal/fcm"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatDOT, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown graph format %q (valid: dot, json)", s)
	}
}

// Node fill colors by scenario delta sign.
const (
	colorRaised  = "mediumseagreen"
	colorLowered = "tomato"
	colorFlat    = "lightgray"
	colorClamped = "steelblue"
)

// deltaEpsilon is the magnitude below which a change is drawn as flat.
const deltaEpsilon = 1e-9

// Edge is one non-zero weight of the map.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Edges lists every non-zero weight in row-major order.
func Edges(m *fcm.Map) []Edge {
	concepts := m.Concepts()
	var edges []Edge
	for i, src := range concepts {
		for j, tgt := range concepts {
			if w := m.Weight(i, j); w != 0 {
				edges = append(edges, Edge{Source: src, Target: tgt, Weight: w})
			}
		}
	}
	return edges
}

// Overlay carries optional scenario data to color nodes.
type Overlay struct {
	Changes fcm.Changes
	Clamped map[string]float64
}

// RenderDOT produces a Graphviz DOT representation of the map. Positive
// edges are solid, negative edges dashed, and pen width scales with |w|.
// With an overlay, nodes are filled by the sign of their change and clamped
// concepts are marked separately.
func RenderDOT(m *fcm.Map, overlay *Overlay) string {
	var b strings.Builder
	b.WriteString("digraph fcm {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=ellipse, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, name := range m.Concepts() {
		color, tooltip := nodeColor(name, overlay)
		b.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q, tooltip=%q];\n",
			name, truncate(name, 40), color, tooltip))
	}
	b.WriteString("\n")

	for _, e := range Edges(m) {
		style := "solid"
		if e.Weight < 0 {
			style = "dashed"
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [label=\"%g\", style=%s, penwidth=%.2f];\n",
			e.Source, e.Target, e.Weight, style, 1+2*math.Min(math.Abs(e.Weight), 1)))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-ready graph with nodes and edges arrays.
func RenderJSON(m *fcm.Map, overlay *Overlay) map[string]interface{} {
	concepts := m.Concepts()
	nodes := make([]map[string]interface{}, 0, len(concepts))
	for i, name := range concepts {
		entry := map[string]interface{}{
			"id":    name,
			"index": i,
		}
		if overlay != nil {
			if d, ok := overlay.Changes[name]; ok {
				entry["delta"] = d
			}
			if v, ok := overlay.Clamped[name]; ok {
				entry["clamped"] = v
			}
		}
		nodes = append(nodes, entry)
	}

	edges := Edges(m)
	if edges == nil {
		edges = []Edge{}
	}
	return map[string]interface{}{
		"nodes":      nodes,
		"edges":      edges,
		"node_count": len(nodes),
		"edge_count": len(edges),
	}
}

func nodeColor(name string, overlay *Overlay) (color, tooltip string) {
	if overlay == nil {
		return colorFlat, ""
	}
	if v, ok := overlay.Clamped[name]; ok {
		return colorClamped, fmt.Sprintf("clamped=%g", v)
	}
	d, ok := overlay.Changes[name]
	if !ok {
		return colorFlat, ""
	}
	tooltip = fmt.Sprintf("delta=%+.4f", d)
	switch {
	case d > deltaEpsilon:
		return colorRaised, tooltip
	case d < -deltaEpsilon:
		return colorLowered, tooltip
	default:
		return colorFlat, tooltip
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
