package config

const (
	CategoryInformation = "🕯️ Information"
	CategoryMusic       = "🎵 Music"
	CategoryModeration  = "🛡️ Moderation"
	CategorySettings    = "⚙️ Settings"
	CategoryOwner       = "👑 Owner"
)

var CategoryWeights = map[string]int{
	CategoryInformation: 0,
	CategoryMusic:       39,
	CategoryModeration:  45,
	CategorySettings:    50,
	CategoryOwner:       90,
}
