package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ppalone/ytsearch"
)

// QuickSearch queries YouTube search results directly, without spawning
// yt-dlp. Hits are completed through details when it is set.
type QuickSearch struct {
	client  *ytsearch.Client
	details Source
}

func NewQuickSearch(details Source) *QuickSearch {
	return &QuickSearch{client: ytsearch.NewClient(nil), details: details}
}

func (q *QuickSearch) Search(ctx context.Context, query string) (Track, error) {
	res, err := q.client.Search(ctx, query)
	if err != nil {
		return Track{}, fmt.Errorf("ytsearch: %w", err)
	}
	for _, r := range res.Results {
		if r.VideoID == "" {
			continue
		}
		t := Track{
			URL:     "https://www.youtube.com/watch?v=" + r.VideoID,
			Title:   r.Title,
			Source:  SourceYouTube,
			Parsers: []string{ParserKkdai, ParserYTDLP},
		}
		if q.details == nil {
			return t, nil
		}
		full, err := q.details.Resolve(ctx, t.URL)
		if err != nil {
			slog.Debug("search hit without details", "url", t.URL, "err", err)
			return t, nil
		}
		return full, nil
	}
	return Track{}, ErrNoResults
}
