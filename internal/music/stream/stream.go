package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/keshon/modtune/internal/music/sources"
	"layeh.com/gopus"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
)

const pausePoll = 100 * time.Millisecond

// Controls are read once per frame.
type Controls interface {
	Volume() int
	Paused() bool
}

// LinkResolver maps a track to a media URL and the parser that produced it.
type LinkResolver interface {
	StreamURL(ctx context.Context, t sources.Track) (string, string, error)
}

// PCMOpener returns s16le 48kHz stereo audio for a media URL.
type PCMOpener func(ctx context.Context, link string) (io.ReadCloser, error)

type frameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

var newEncoder = func() (frameEncoder, error) {
	return gopus.NewEncoder(sampleRate, channels, gopus.Audio)
}

// Streamer produces opus frames for a track.
type Streamer struct {
	Links LinkResolver
	Open  PCMOpener
}

func New(links LinkResolver) *Streamer {
	return &Streamer{Links: links, Open: FFmpeg}
}

// Stream blocks until the track ends, ctx is cancelled or an error occurs.
// A natural end of the track returns nil.
func (s *Streamer) Stream(ctx context.Context, t sources.Track, out chan<- []byte, ctl Controls) error {
	link, parser, err := s.Links.StreamURL(ctx, t)
	if err != nil {
		return err
	}
	slog.Debug("opening stream", "track", t.Title, "parser", parser)

	pcm, err := s.Open(ctx, link)
	if err != nil {
		return fmt.Errorf("open pcm: %w", err)
	}
	defer pcm.Close()

	return Encode(ctx, pcm, out, ctl)
}

// Encode reads PCM frames, applies volume, encodes them and sends them to out.
func Encode(ctx context.Context, pcm io.Reader, out chan<- []byte, ctl Controls) error {
	encoder, err := newEncoder()
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	pcmBuf := make([]byte, frameSize*channels*2)
	samples := make([]int16, frameSize*channels)

	for {
		if err := waitWhilePaused(ctx, ctl); err != nil {
			return err
		}

		if _, err := io.ReadFull(pcm, pcmBuf); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}
		ApplyVolume(samples, ctl.Volume())

		opus, err := encoder.Encode(samples, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case out <- opus:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ApplyVolume scales samples in place; 100 leaves them unchanged.
func ApplyVolume(samples []int16, volume int) {
	if volume == 100 {
		return
	}
	factor := float64(max(volume, 0)) / 100
	for i, s := range samples {
		v := float64(s) * factor
		switch {
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}

func waitWhilePaused(ctx context.Context, ctl Controls) error {
	if !ctl.Paused() {
		return ctx.Err()
	}
	ticker := time.NewTicker(pausePoll)
	defer ticker.Stop()
	for ctl.Paused() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
