// internal/mapgen/svg.go
package mapgen

import (
	"fmt"
	"html"
	"strings"
)

// SVGWidth is the pixel width of rendered maps; node X percentages scale to it.
const SVGWidth = 320.0

// RenderSVG draws the map for a location history as a standalone SVG
// document. An empty history renders the blank parchment only.
func RenderSVG(history []string) string {
	m := Layout(history)
	sx := func(pct float64) string { return fmtNum(pct * SVGWidth / 100) }

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		fmtNum(SVGWidth), fmtNum(m.Height), fmtNum(SVGWidth), fmtNum(m.Height))
	b.WriteString(`<rect width="100%" height="100%" fill="#111111"/>`)

	b.WriteString(`<g class="terrain" fill="#27272a" opacity="0.3">`)
	for _, f := range m.Terrain {
		glyph := IconForest.Glyph()
		if f.Kind == TerrainMountain {
			glyph = IconMountain.Glyph()
		}
		fmt.Fprintf(&b, `<text x="%s" y="%s" font-size="%s" text-anchor="middle">%s</text>`,
			sx(f.X), fmtNum(f.Y), fmtNum(24*f.Scale), glyph)
	}
	b.WriteString(`</g>`)

	if d := PathData(m.Nodes, SVGWidth/100); d != "" {
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="#451a03" stroke-width="6" stroke-opacity="0.2" stroke-linecap="round"/>`, d)
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="#78350f" stroke-width="2" stroke-dasharray="6 4" stroke-linecap="round"/>`, d)
	}

	for i, n := range m.Nodes {
		stroke := "#3f3f46"
		if i == len(m.Nodes)-1 {
			stroke = "#fbbf24"
		}
		fmt.Fprintf(&b, `<g class="node" data-index="%d">`, n.Index)
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="16" fill="#18181b" stroke="%s" stroke-width="2"/>`, sx(n.X), fmtNum(n.Y), stroke)
		fmt.Fprintf(&b, `<text x="%s" y="%s" font-size="14" text-anchor="middle" fill="%s">%s</text>`, sx(n.X), fmtNum(n.Y+5), stroke, n.Icon.Glyph())
		fmt.Fprintf(&b, `<text x="%s" y="%s" font-size="10" text-anchor="middle" fill="#a1a1aa">%s</text>`, sx(n.X), fmtNum(n.Y+32), html.EscapeString(n.Name))
		b.WriteString(`</g>`)
	}

	b.WriteString(`</svg>`)
	return b.String()
}
