package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Resolver turns /play input into a track and later into a media link.
type Resolver struct {
	Sources   []Source
	Searchers []Searcher
	Links     map[string]LinkFunc

	mu        sync.Mutex
	preferred string
}

// NewResolver wires the YouTube, direct-link and yt-dlp backends. proxy
// applies to both the kkdai client and yt-dlp.
func NewResolver(proxy string) (*Resolver, error) {
	httpClient, err := NewHTTPClient(proxy)
	if err != nil {
		return nil, err
	}
	yt := NewYouTube(httpClient)
	direct := NewDirect()
	dlp := NewYTDLP(proxy)

	return &Resolver{
		Sources:   []Source{yt, direct, dlp},
		Searchers: []Searcher{NewQuickSearch(yt), dlp},
		Links: map[string]LinkFunc{
			ParserKkdai:  yt.StreamURL,
			ParserYTDLP:  dlp.StreamURL,
			ParserDirect: direct.StreamURL,
		},
	}, nil
}

// Resolve accepts a URL or a search query. URLs go to the first matching
// source; queries go through the searchers in order until one returns a hit.
func (r *Resolver) Resolve(ctx context.Context, input string) (Track, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Track{}, ErrNoResults
	}

	if !IsURL(input) {
		return r.search(ctx, input)
	}

	var errs []error
	for _, src := range r.Sources {
		if !src.Match(input) {
			continue
		}
		t, err := src.Resolve(ctx, input)
		if err == nil {
			return t, nil
		}
		slog.Debug("source failed to resolve", "source", src.Name(), "input", input, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	if len(errs) == 0 {
		return Track{}, ErrUnsupported
	}
	return Track{}, errors.Join(errs...)
}

func (r *Resolver) search(ctx context.Context, query string) (Track, error) {
	var errs []error
	for _, s := range r.Searchers {
		t, err := s.Search(ctx, query)
		if err == nil {
			return t, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Track{}, ErrNoResults
	}
	return Track{}, errors.Join(errs...)
}

// StreamURL tries the track's parsers and reports which one worked. The
// parser that last succeeded is tried first when the track supports it.
func (r *Resolver) StreamURL(ctx context.Context, t Track) (string, string, error) {
	parsers := t.Parsers
	r.mu.Lock()
	if slices.Contains(parsers, r.preferred) {
		parsers = MoveToFront(parsers, r.preferred)
	}
	r.mu.Unlock()

	var errs []error
	for _, parser := range parsers {
		fn, ok := r.Links[parser]
		if !ok {
			errs = append(errs, fmt.Errorf("no link parser %q", parser))
			continue
		}
		link, err := fn(ctx, t)
		if err == nil {
			r.mu.Lock()
			r.preferred = parser
			r.mu.Unlock()
			return link, parser, nil
		}
		slog.Warn("link parser failed, trying next", "parser", parser, "track", t.Title, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", parser, err))
	}
	if len(errs) == 0 {
		return "", "", fmt.Errorf("track %q has no parsers", t.Title)
	}
	return "", "", fmt.Errorf("all parsers failed for %q: %w", t.Title, errors.Join(errs...))
}
