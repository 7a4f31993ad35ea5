package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// FFmpeg decodes link to raw PCM. Network inputs reconnect on drops.
func FFmpeg(ctx context.Context, link string) (io.ReadCloser, error) {
	args := []string{}
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	args = append(args,
		"-i", link,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start error: %w", err)
	}
	return &process{stdout: reader, cmd: cmd, stderr: &stderr}, nil
}

// process reports a failed ffmpeg run in place of the final EOF, so a dead
// or forbidden link is not mistaken for the end of the track.
type process struct {
	stdout io.ReadCloser
	cmd    *exec.Cmd
	stderr *bytes.Buffer

	once    sync.Once
	waitErr error
}

func (p *process) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if errors.Is(err, io.EOF) {
		if werr := p.wait(); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func (p *process) wait() error {
	p.once.Do(func() {
		err := p.cmd.Wait()
		if err == nil {
			return
		}
		if msg := strings.TrimSpace(p.stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		p.waitErr = fmt.Errorf("ffmpeg: %w", err)
	})
	return p.waitErr
}

func (p *process) Close() error {
	_ = p.cmd.Process.Kill()
	_ = p.stdout.Close()
	// After a kill the exit status is noise.
	if err := p.wait(); err != nil {
		slog.Debug("ffmpeg exited", "err", err)
	}
	return nil
}
