package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// YouTube resolves YouTube links with the kkdai client.
type YouTube struct {
	client *youtube.Client
}

func NewYouTube(httpClient *http.Client) *YouTube {
	return &YouTube{client: &youtube.Client{HTTPClient: httpClient}}
}

func (y *YouTube) Name() string { return SourceYouTube }

func (y *YouTube) Match(input string) bool { return IsYouTubeURL(input) }

func (y *YouTube) Resolve(ctx context.Context, input string) (Track, error) {
	link := CleanVideoURL(strings.TrimSpace(input))
	id, err := ExtractYouTubeID(link)
	if err != nil {
		return Track{}, err
	}

	video, err := y.client.GetVideoContext(ctx, id)
	if err != nil {
		return Track{}, fmt.Errorf("kkdai get video: %w", err)
	}

	t := Track{
		URL:      link,
		Title:    video.Title,
		Artist:   video.Author,
		Duration: video.Duration,
		Source:   SourceYouTube,
		Parsers:  []string{ParserKkdai, ParserYTDLP},
	}
	if n := len(video.Thumbnails); n > 0 {
		t.Thumbnail = video.Thumbnails[n-1].URL
	}
	return t, nil
}

// StreamURL picks an audio-only format when one exists.
func (y *YouTube) StreamURL(ctx context.Context, t Track) (string, error) {
	video, err := y.client.GetVideoContext(ctx, t.URL)
	if err != nil {
		return "", fmt.Errorf("kkdai get video: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return "", errors.New("kkdai: no audio formats found for video")
	}
	format := &formats[0]
	for i := range formats {
		if strings.HasPrefix(formats[i].MimeType, "audio/") {
			format = &formats[i]
			break
		}
	}

	link, err := y.client.GetStreamURLContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("kkdai get stream URL: %w", err)
	}
	return link, nil
}
