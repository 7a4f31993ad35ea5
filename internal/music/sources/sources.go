package sources

import (
	"context"
	"errors"
	"time"
)

const (
	SourceYouTube = "youtube"
	SourceDirect  = "direct"
	SourceYTDLP   = "ytdlp"
)

// Parsers turn a track page into a playable media link.
const (
	ParserKkdai  = "kkdai-link"
	ParserYTDLP  = "ytdlp-link"
	ParserDirect = "ffmpeg-link"
)

var (
	ErrNoResults   = errors.New("no results found")
	ErrUnsupported = errors.New("unsupported input")
)

type Track struct {
	URL         string
	Title       string
	Artist      string
	Duration    time.Duration
	Thumbnail   string
	Source      string
	RequestedBy string
	// Parsers lists link parsers to try, best first.
	Parsers []string
}

// Source resolves URLs it recognises into tracks.
type Source interface {
	Name() string
	Match(input string) bool
	Resolve(ctx context.Context, input string) (Track, error)
}

// Searcher finds the first track for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) (Track, error)
}

// LinkFunc returns a media URL ffmpeg can open for a track.
type LinkFunc func(ctx context.Context, t Track) (string, error)
