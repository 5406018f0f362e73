package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
)

// FFmpegConfig holds configuration for the FFmpeg transcoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// VideoCodec is the video codec to use.
	// Default: libx264
	VideoCodec string

	// VideoPreset controls the encoding speed/quality tradeoff.
	// Default: medium
	VideoPreset string

	// AudioCodec is the audio codec to use.
	// Default: aac
	AudioCodec string

	// MaxHeight caps the tallest rendition that will be produced.
	// Default: 1080
	MaxHeight int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		VideoCodec:  "libx264",
		VideoPreset: "medium",
		AudioCodec:  "aac",
		MaxHeight:   1080,
	}
}

// FFmpegTranscoder implements Transcoder using FFmpeg CLI.
type FFmpegTranscoder struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new FFmpeg-based transcoder.
func NewFFmpegTranscoder(cfg FFmpegConfig) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegTranscoder{
		config: cfg,
	}
}

// MaxHeight returns the configured rendition height cap.
func (t *FFmpegTranscoder) MaxHeight() int {
	return t.config.MaxHeight
}

// TranscodeToPreset renders a single MP4 rendition and waits for FFmpeg to finish.
func (t *FFmpegTranscoder) TranscodeToPreset(ctx context.Context, inputPath, outputDir string, preset model.QualityPreset) (string, error) {
	if err := t.validateInput(inputPath); err != nil {
		return "", err
	}

	if err := t.validateOutputDir(outputDir); err != nil {
		return "", err
	}

	outputPath := filepath.Join(outputDir, preset.Label+".mp4")
	args := t.buildPresetArgs(inputPath, outputPath, preset)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.config.FFmpegPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("transcoding cancelled: %w", ctx.Err())
		}
		return "", fmt.Errorf("ffmpeg execution failed: %w: %s", err, lastLine(stderr.String()))
	}

	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("ffmpeg produced no output for %s: %w", preset.Label, err)
	}

	return outputPath, nil
}

// validateInput checks if the input file exists and is readable.
func (t *FFmpegTranscoder) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// validateOutputDir checks if the output directory exists.
func (t *FFmpegTranscoder) validateOutputDir(outputDir string) error {
	info, err := os.Stat(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", outputDir)
		}
		return fmt.Errorf("failed to access output directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", outputDir)
	}

	return nil
}

// buildPresetArgs constructs the FFmpeg command arguments for one preset.
// The picture is scaled to fit the frame and padded with black bars.
func (t *FFmpegTranscoder) buildPresetArgs(inputPath, outputPath string, preset model.QualityPreset) []string {
	size := fmt.Sprintf("%d:%d", preset.Width, preset.Height)
	filter := fmt.Sprintf("scale=%s:force_original_aspect_ratio=decrease,pad=%s:-1:-1:color=black", size, size)

	return ffmpeg.Input(inputPath).
		Output(outputPath, ffmpeg.KwArgs{
			"vf":       filter,
			"c:v":      t.config.VideoCodec,
			"b:v":      preset.VideoBitrate,
			"c:a":      t.config.AudioCodec,
			"b:a":      preset.AudioBitrate,
			"preset":   t.config.VideoPreset,
			"movflags": "+faststart",
		}).
		OverWriteOutput().
		GetArgs()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
