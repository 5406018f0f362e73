package transcoder

import (
	"context"

	"github.com/hszk-dev/vidshelf/internal/domain/model"
)

// MediaInfo is the subset of stream metadata the catalog cares about.
type MediaInfo struct {
	Width     int
	Height    int
	Codec     string
	Duration  float64 // seconds
	FrameRate float64
}

// Transcoder defines the interface for rendering quality variants.
type Transcoder interface {
	// TranscodeToPreset renders inputPath at the preset's resolution and bitrates.
	// The output is an MP4 file named after the preset label inside outputDir,
	// letterboxed to the preset's exact frame size.
	//
	// The output directory must exist before calling this method.
	TranscodeToPreset(ctx context.Context, inputPath, outputDir string, preset model.QualityPreset) (string, error)
}

// Prober reads stream metadata from a local media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*MediaInfo, error)
}
