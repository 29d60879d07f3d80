// internal/mapgen/icons.go
package mapgen

import "strings"

// Icon is the glyph category drawn for a map node.
type Icon string

const (
	IconForest     Icon = "forest"
	IconMountain   Icon = "mountain"
	IconLandmark   Icon = "landmark"
	IconSettlement Icon = "settlement"
	IconCamp       Icon = "camp"
	IconWater      Icon = "water"
	IconMarker     Icon = "marker"
)

// Order matters: "Riverwood Keep" must stay a forest, "Hilltop Town" a mountain.
var iconKeywords = []struct {
	icon     Icon
	keywords []string
}{
	{IconForest, []string{"forest", "wood", "grove", "jungle"}},
	{IconMountain, []string{"mountain", "hill", "peak", "cliff", "rock"}},
	{IconLandmark, []string{"castle", "fort", "keep", "tower", "palace", "citadel"}},
	{IconSettlement, []string{"inn", "tavern", "house", "home", "village", "town", "city"}},
	{IconCamp, []string{"camp", "tent", "outpost"}},
	{IconWater, []string{"river", "lake", "sea", "ocean", "coast", "beach"}},
}

// Classify maps a location name to an icon by case-insensitive substring
// match; the first matching category wins.
func Classify(name string) Icon {
	n := strings.ToLower(name)
	for _, group := range iconKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(n, kw) {
				return group.icon
			}
		}
	}
	return IconMarker
}

// Glyph is the single-character symbol used by text and SVG renderers.
func (i Icon) Glyph() string {
	switch i {
	case IconForest:
		return "♣"
	case IconMountain:
		return "▲"
	case IconLandmark:
		return "♜"
	case IconSettlement:
		return "⌂"
	case IconCamp:
		return "⛺"
	case IconWater:
		return "≈"
	default:
		return "●"
	}
}
