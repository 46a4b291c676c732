package config

// Command categories in the order help lists them.
const (
	CategoryMusic    = "🎵 Music"
	CategorySettings = "⚙️ Settings"
	CategoryInfo     = "🕯️ Information"
)

var CategoryWeights = map[string]int{
	CategoryMusic:    0,
	CategorySettings: 10,
	CategoryInfo:     20,
}
