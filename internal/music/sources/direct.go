package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

var audioContentTypes = []string{
	"audio/",
	"application/ogg",
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"application/x-scpls",
}

var audioExtensions = map[string]bool{
	".mp3": true, ".ogg": true, ".opus": true, ".flac": true, ".wav": true,
	".m4a": true, ".aac": true, ".m3u": true, ".m3u8": true, ".pls": true,
}

// Direct plays raw audio links and internet radio streams with ffmpeg alone.
type Direct struct {
	client *http.Client
}

func NewDirect() *Direct {
	return &Direct{client: &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}}
}

func (d *Direct) Name() string { return SourceDirect }

// Match only inspects the path; Resolve confirms with the server.
func (d *Direct) Match(input string) bool {
	if !IsURL(input) {
		return false
	}
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return audioExtensions[strings.ToLower(path.Ext(u.Path))]
}

func (d *Direct) Resolve(ctx context.Context, input string) (Track, error) {
	ct, err := d.contentType(ctx, input)
	if err != nil {
		return Track{}, err
	}
	if !isAudioType(ct) {
		return Track{}, fmt.Errorf("%w: content-type %q", ErrUnsupported, ct)
	}

	u, _ := url.Parse(input)
	title := path.Base(u.Path)
	if title == "." || title == "/" {
		title = u.Host
	}
	return Track{
		URL:     input,
		Title:   title,
		Source:  SourceDirect,
		Parsers: []string{ParserDirect},
	}, nil
}

func (d *Direct) StreamURL(_ context.Context, t Track) (string, error) {
	return t.URL, nil
}

func (d *Direct) contentType(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := d.client.Do(req)
	if err != nil || resp.StatusCode >= 400 {
		if resp != nil {
			resp.Body.Close()
		}
		// Some stream servers reject HEAD.
		req.Method = http.MethodGet
		resp, err = d.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch content type: %w", err)
		}
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, 512)
	return resp.Header.Get("Content-Type"), nil
}

func isAudioType(ct string) bool {
	if i := strings.Index(ct, ";"); i != -1 {
		ct = ct[:i]
	}
	ct = strings.TrimSpace(strings.ToLower(ct))
	for _, allowed := range audioContentTypes {
		if strings.HasPrefix(ct, allowed) {
			return true
		}
	}
	return false
}
