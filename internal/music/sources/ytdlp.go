package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

const metadataTemplate = "%(webpage_url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s"

// YTDLP resolves any site yt-dlp knows and serves as search and link fallback.
type YTDLP struct {
	proxy string
}

func NewYTDLP(proxy string) *YTDLP {
	return &YTDLP{proxy: proxy}
}

func (y *YTDLP) command() *ytdlp.Command {
	cmd := ytdlp.New().IgnoreConfig().NoWarnings()
	if y.proxy != "" {
		cmd.Proxy(y.proxy)
	}
	return cmd
}

func (y *YTDLP) Name() string { return SourceYTDLP }

func (y *YTDLP) Match(input string) bool { return IsURL(input) }

func (y *YTDLP) Resolve(ctx context.Context, input string) (Track, error) {
	res, err := y.command().
		Print(metadataTemplate).
		NoPlaylist().
		NoSimulate().
		Run(ctx, "--skip-download", input)
	if err != nil {
		return Track{}, fmt.Errorf("yt-dlp metadata: %w", err)
	}
	t, ok := parseMetadataLine(res.Stdout)
	if !ok {
		return Track{}, fmt.Errorf("yt-dlp metadata: %w", ErrNoResults)
	}
	if t.URL == "" {
		t.URL = input
	}
	t.Source = SourceYTDLP
	t.Parsers = []string{ParserYTDLP}
	if IsYouTubeURL(t.URL) {
		t.Source = SourceYouTube
		t.Parsers = []string{ParserKkdai, ParserYTDLP}
	}
	return t, nil
}

// Search runs a ytsearch1 query.
func (y *YTDLP) Search(ctx context.Context, query string) (Track, error) {
	res, err := y.command().
		FlatPlaylist().
		Print("%(url)s\t%(title)s\t%(uploader)s\t%(duration)s").
		PlaylistItems("1-1").
		Run(ctx, "ytsearch1:"+query)
	if err != nil {
		return Track{}, fmt.Errorf("yt-dlp search: %w", err)
	}
	t, ok := parseMetadataLine(res.Stdout)
	if !ok || t.URL == "" {
		return Track{}, ErrNoResults
	}
	t.Source = SourceYouTube
	t.Parsers = []string{ParserKkdai, ParserYTDLP}
	return t, nil
}

// StreamURL asks yt-dlp for the best audio link.
func (y *YTDLP) StreamURL(ctx context.Context, t Track) (string, error) {
	res, err := y.command().
		Format("bestaudio[ext=webm]/bestaudio/best").
		NoPlaylist().
		GetURL().
		Run(ctx, t.URL)
	if err != nil {
		return "", fmt.Errorf("yt-dlp get-url: %w", err)
	}
	link := lastURLLine(res.Stdout)
	if link == "" {
		return "", fmt.Errorf("yt-dlp get-url: empty output")
	}
	return link, nil
}

func parseMetadataLine(out string) (Track, bool) {
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		ps := strings.Split(line, "\t")
		if len(ps) < 4 {
			continue
		}
		t := Track{
			URL:      na(ps[0]),
			Title:    na(ps[1]),
			Artist:   na(ps[2]),
			Duration: parseSeconds(ps[3]),
		}
		if len(ps) > 4 {
			t.Thumbnail = na(ps[4])
		}
		return t, true
	}
	return Track{}, false
}

func lastURLLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); IsURL(l) {
			return l
		}
	}
	return ""
}

// na maps yt-dlp's placeholder for missing fields to "".
func na(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" {
		return ""
	}
	return s
}
