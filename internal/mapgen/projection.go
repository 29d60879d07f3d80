// internal/mapgen/projection.go
package mapgen

import (
	"math"
	"strconv"
	"strings"
)

// Layout constants. X values are percentages of the map width; Y values are
// pixels from the top of the map.
const (
	BandMin       = 25.0
	BandWidth     = 50.0
	RowHeight     = 80.0
	TopMargin     = 50.0
	MinHeight     = 300.0
	BottomPadding = 100.0
	CurveOffset   = 40.0

	terrainPerRow   = 3
	terrainRowSize  = 100.0
	terrainBandLow  = 20.0
	terrainBandHigh = 80.0
	mountainCutoff  = 0.6
	terrainScaleMin = 0.8
	terrainScaleVar = 0.5
	genesisSeed     = "genesis"
)

// Point is a position on the map.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one visited location, derived from (name, index) only.
type Node struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Icon  Icon    `json:"icon"`
}

// Segment is a cubic curve between two consecutive nodes.
type Segment struct {
	From     Point `json:"from"`
	Control1 Point `json:"control1"`
	Control2 Point `json:"control2"`
	To       Point `json:"to"`
}

// TerrainKind 地形装饰类别
type TerrainKind string

const (
	TerrainTree     TerrainKind = "tree"
	TerrainMountain TerrainKind = "mountain"
)

// TerrainFeature is a purely cosmetic background decoration.
type TerrainFeature struct {
	ID    int         `json:"id"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Kind  TerrainKind `json:"kind"`
	Scale float64     `json:"scale"`
}

// Map is the full derived layout for a location history.
type Map struct {
	Height   float64          `json:"height"`
	Nodes    []Node           `json:"nodes"`
	Segments []Segment        `json:"segments"`
	PathData string           `json:"pathData"`
	Terrain  []TerrainFeature `json:"terrain"`
}

// Nodes places every location in the central band with a fixed row height.
func Nodes(history []string) []Node {
	nodes := make([]Node, 0, len(history))
	for i, name := range history {
		seed := name + "-" + strconv.Itoa(i)
		nodes = append(nodes, Node{
			Index: i,
			Name:  name,
			X:     BandMin + PseudoRandom(seed)*BandWidth,
			Y:     float64(i)*RowHeight + TopMargin,
			Icon:  Classify(name),
		})
	}
	return nodes
}

// Height returns the map height needed for nodeCount nodes.
func Height(nodeCount int) float64 {
	return math.Max(MinHeight, float64(nodeCount)*RowHeight+BottomPadding)
}

// Path connects consecutive nodes with S-curves. Fewer than two nodes yield
// no segments.
func Path(nodes []Node) []Segment {
	if len(nodes) < 2 {
		return []Segment{}
	}
	segments := make([]Segment, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		prev, cur := nodes[i-1], nodes[i]
		segments = append(segments, Segment{
			From:     Point{prev.X, prev.Y},
			Control1: Point{prev.X, prev.Y + CurveOffset},
			Control2: Point{cur.X, cur.Y - CurveOffset},
			To:       Point{cur.X, cur.Y},
		})
	}
	return segments
}

// PathData renders the segments as an SVG path. X coordinates are node
// percentages multiplied by xScale; pass 1 for a 100-wide viewBox.
func PathData(nodes []Node, xScale float64) string {
	segments := Path(nodes)
	if len(segments) == 0 {
		return ""
	}
	x := func(v float64) string { return fmtNum(v * xScale) }
	var b strings.Builder
	b.WriteString("M " + x(segments[0].From.X) + " " + fmtNum(segments[0].From.Y))
	for _, s := range segments {
		b.WriteString(" C " +
			x(s.Control1.X) + " " + fmtNum(s.Control1.Y) + ", " +
			x(s.Control2.X) + " " + fmtNum(s.Control2.Y) + ", " +
			x(s.To.X) + " " + fmtNum(s.To.Y))
	}
	return b.String()
}

// Terrain scatters decorations outside the central band, seeded from the
// first location. Features inside the band are dropped, not re-rolled.
func Terrain(history []string, height float64) []TerrainFeature {
	count := int(math.Floor(height/terrainRowSize)) * terrainPerRow
	base := genesisSeed
	if len(history) > 0 {
		base = history[0]
	}

	features := make([]TerrainFeature, 0, count)
	for i := 0; i < count; i++ {
		seed := base + "-terrain-" + strconv.Itoa(i)
		y := PseudoRandom(seed+"y") * height
		x := PseudoRandom(seed+"x") * 100
		if x > terrainBandLow && x < terrainBandHigh {
			continue
		}
		kind := TerrainTree
		if PseudoRandom(seed+"t") > mountainCutoff {
			kind = TerrainMountain
		}
		features = append(features, TerrainFeature{
			ID:    i,
			X:     x,
			Y:     y,
			Kind:  kind,
			Scale: terrainScaleMin + PseudoRandom(seed+"s")*terrainScaleVar,
		})
	}
	return features
}

// Layout derives the whole map from the location history. Nothing is cached;
// the same history always produces the same Map.
func Layout(history []string) Map {
	nodes := Nodes(history)
	height := Height(len(nodes))
	return Map{
		Height:   height,
		Nodes:    nodes,
		Segments: Path(nodes),
		PathData: PathData(nodes, 1),
		Terrain:  Terrain(history, height),
	}
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
