package version

const (
	AppName        = "ModTune"
	AppDescription = "Music playback and server moderation through slash commands"
	AppPresence    = "/help | Music & Moderation"
)
