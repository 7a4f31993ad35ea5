package bot

type SystemEventType int

const (
	SystemEventRefreshCommands SystemEventType = iota
)

type SystemEvent struct {
	Type    SystemEventType
	GuildID string
	Target  string // "all", "group:<name>" or a command name
}

var systemEvents = make(chan SystemEvent, 32)

// PublishSystemEvent never blocks; the event is dropped when the bus is full.
func PublishSystemEvent(ev SystemEvent) bool {
	select {
	case systemEvents <- ev:
		return true
	default:
		return false
	}
}

func SystemEvents() <-chan SystemEvent {
	return systemEvents
}
