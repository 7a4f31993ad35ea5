package sources

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var youtubeURL = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(youtube\.com|youtu\.be)/\S+`)

func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func IsYouTubeURL(s string) bool {
	return youtubeURL.MatchString(s)
}

// CleanVideoURL strips playlist, timestamp and tracking parameters from a YouTube link.
func CleanVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := u.Hostname()
	switch host {
	case "youtu.be":
		vid := strings.Trim(u.Path, "/")
		if vid == "" {
			return raw
		}
		return "https://youtu.be/" + vid
	case "www.youtube.com", "youtube.com", "m.youtube.com", "music.youtube.com":
		if u.Path == "/watch" {
			if vid := u.Query().Get("v"); vid != "" {
				return fmt.Sprintf("https://%s/watch?v=%s", host, vid)
			}
		}
	}
	return raw
}

// ExtractYouTubeID returns the video ID of watch, short and shorts links.
func ExtractYouTubeID(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	var id string
	switch {
	case u.Hostname() == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case u.Path == "/watch":
		id = u.Query().Get("v")
	case strings.HasPrefix(u.Path, "/shorts/"):
		id = strings.TrimPrefix(u.Path, "/shorts/")
	}
	id = strings.Trim(id, "/")
	if id == "" {
		return "", errors.New("unsupported YouTube URL format")
	}
	return id, nil
}

// MoveToFront returns list with item first, keeping the other entries in order.
func MoveToFront(list []string, item string) []string {
	if len(list) == 0 || item == "" || list[0] == item {
		return list
	}
	ordered := make([]string, 0, len(list))
	ordered = append(ordered, item)
	for _, v := range list {
		if v != item {
			ordered = append(ordered, v)
		}
	}
	return ordered
}

// parseSeconds reads yt-dlp durations such as "212" or "212.0"; "NA" yields 0.
func parseSeconds(s string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s) + "s")
	if err != nil {
		return 0
	}
	return d
}
