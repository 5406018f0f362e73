package transcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const (
	defaultFrameRate = 30

	// DefaultProbeTimeout bounds an ffprobe run when the context has no sooner deadline.
	DefaultProbeTimeout = 30 * time.Second
)

// FFprobeProber implements Prober with ffprobe.
type FFprobeProber struct {
	timeout time.Duration
	probe   func(path string, timeout time.Duration) (string, error)
}

// Compile-time verification that FFprobeProber implements Prober.
var _ Prober = (*FFprobeProber)(nil)

// NewFFprobeProber creates a prober that shells out to ffprobe.
func NewFFprobeProber() *FFprobeProber {
	return &FFprobeProber{
		timeout: DefaultProbeTimeout,
		probe: func(path string, timeout time.Duration) (string, error) {
			return ffmpeg.ProbeWithTimeout(path, timeout, nil)
		},
	}
}

// Probe returns the first video stream's geometry, codec, duration and frame rate.
func (p *FFprobeProber) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout, err := p.timeoutFor(ctx)
	if err != nil {
		return nil, err
	}

	out, err := p.probe(path, timeout)
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeOutput([]byte(out))
}

// timeoutFor returns the configured timeout, shortened to the context deadline.
func (p *FFprobeProber) timeoutFor(ctx context.Context) (time.Duration, error) {
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseProbeOutput decodes ffprobe's JSON. Duration and frame rate fall back
// to 0 and 30 when absent or unparseable.
func parseProbeOutput(data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode ffprobe output: %w", err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}

		info := &MediaInfo{
			Width:     s.Width,
			Height:    s.Height,
			Codec:     s.CodecName,
			FrameRate: parseFrameRate(s.RFrameRate),
		}

		duration := out.Format.Duration
		if duration == "" {
			duration = s.Duration
		}
		if d, err := strconv.ParseFloat(duration, 64); err == nil {
			info.Duration = d
		}

		return info, nil
	}

	return nil, fmt.Errorf("no video stream found")
}

// parseFrameRate turns "30000/1001" into 29.97.
func parseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		if f, err := strconv.ParseFloat(rate, 64); err == nil && f > 0 {
			return f
		}
		return defaultFrameRate
	}

	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 || n <= 0 {
		return defaultFrameRate
	}
	return n / d
}

// FormatDuration renders seconds as mm:ss. Minutes are not capped at 59.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
