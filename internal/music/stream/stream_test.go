package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keshon/modtune/internal/music/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEncoder struct{ last []int16 }

func (f *fakeEncoder) Encode(pcm []int16, _, _ int) ([]byte, error) {
	f.last = append(f.last[:0], pcm...)
	return []byte{byte(pcm[0])}, nil
}

func useFakeEncoder(t *testing.T) *fakeEncoder {
	t.Helper()
	enc := &fakeEncoder{}
	orig := newEncoder
	newEncoder = func() (frameEncoder, error) { return enc, nil }
	t.Cleanup(func() { newEncoder = orig })
	return enc
}

type controls struct {
	volume atomic.Int32
	paused atomic.Bool
}

func newControls(vol int) *controls {
	c := &controls{}
	c.volume.Store(int32(vol))
	return c
}

func (c *controls) Volume() int { return int(c.volume.Load()) }

func (c *controls) Paused() bool { return c.paused.Load() }

func pcmFrames(n int, sample int16) []byte {
	buf := make([]byte, n*frameSize*channels*2)
	for i := 0; i < len(buf); i += 2 {
		binary.LittleEndian.PutUint16(buf[i:], uint16(sample))
	}
	return buf
}

func TestApplyVolume(t *testing.T) {
	s := []int16{1000, -1000, 32767}
	ApplyVolume(s, 50)
	assert.Equal(t, []int16{500, -500, 16383}, s)

	s = []int16{1000}
	ApplyVolume(s, 100)
	assert.Equal(t, []int16{1000}, s)

	s = []int16{30000, -30000}
	ApplyVolume(s, 200)
	assert.Equal(t, []int16{32767, -32768}, s)

	s = []int16{1000}
	ApplyVolume(s, 0)
	assert.Equal(t, []int16{0}, s)
}

func TestEncodeSendsEveryFrame(t *testing.T) {
	enc := useFakeEncoder(t)
	out := make(chan []byte, 10)

	err := Encode(context.Background(), bytes.NewReader(pcmFrames(3, 40)), out, newControls(50))
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, int16(20), enc.last[0])
}

func TestEncodeDropsPartialTail(t *testing.T) {
	useFakeEncoder(t)
	out := make(chan []byte, 10)
	data := append(pcmFrames(1, 1), 0, 0, 0)

	require.NoError(t, Encode(context.Background(), bytes.NewReader(data), out, newControls(100)))
	assert.Len(t, out, 1)
}

func TestEncodeStopsOnCancel(t *testing.T) {
	useFakeEncoder(t)
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan []byte)

	done := make(chan error, 1)
	go func() { done <- Encode(ctx, bytes.NewReader(pcmFrames(5, 1)), out, newControls(100)) }()

	<-out
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("encode did not stop")
	}
}

func TestEncodeHoldsWhilePaused(t *testing.T) {
	useFakeEncoder(t)
	ctl := newControls(100)
	ctl.paused.Store(true)
	out := make(chan []byte, 10)

	done := make(chan error, 1)
	go func() { done <- Encode(context.Background(), bytes.NewReader(pcmFrames(2, 1)), out, ctl) }()

	time.Sleep(3 * pausePoll)
	assert.Len(t, out, 0)

	ctl.paused.Store(false)
	require.NoError(t, <-done)
	assert.Len(t, out, 2)
}

type fakeLinks struct {
	link string
	err  error
}

func (f fakeLinks) StreamURL(context.Context, sources.Track) (string, string, error) {
	return f.link, sources.ParserDirect, f.err
}

func TestStreamerOpensResolvedLink(t *testing.T) {
	useFakeEncoder(t)
	var opened string
	s := &Streamer{
		Links: fakeLinks{link: "https://media/a.mp3"},
		Open: func(_ context.Context, link string) (io.ReadCloser, error) {
			opened = link
			return io.NopCloser(bytes.NewReader(pcmFrames(1, 1))), nil
		},
	}
	out := make(chan []byte, 1)
	require.NoError(t, s.Stream(context.Background(), sources.Track{}, out, newControls(100)))
	assert.Equal(t, "https://media/a.mp3", opened)
	assert.Len(t, out, 1)
}

func TestStreamerLinkFailure(t *testing.T) {
	boom := errors.New("no link")
	s := &Streamer{Links: fakeLinks{err: boom}}
	err := s.Stream(context.Background(), sources.Track{}, make(chan []byte), newControls(100))
	assert.ErrorIs(t, err, boom)
}
