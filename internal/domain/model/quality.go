package model

import "fmt"

// QualityPreset is a static transcoding target.
type QualityPreset struct {
	Label        string
	Width        int
	Height       int
	VideoBitrate string
	AudioBitrate string
}

// Resolution renders the preset as WIDTHxHEIGHT.
func (p QualityPreset) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Variant builds the registry entry for a rendition stored at path.
func (p QualityPreset) Variant(path string) QualityVariant {
	return QualityVariant{
		Path:       path,
		Resolution: p.Resolution(),
		Bitrate:    p.VideoBitrate,
	}
}

var qualityPresets = []QualityPreset{
	{Label: "240p", Width: 426, Height: 240, VideoBitrate: "400k", AudioBitrate: "64k"},
	{Label: "360p", Width: 640, Height: 360, VideoBitrate: "700k", AudioBitrate: "96k"},
	{Label: "480p", Width: 854, Height: 480, VideoBitrate: "1500k", AudioBitrate: "128k"},
	{Label: "720p", Width: 1280, Height: 720, VideoBitrate: "3000k", AudioBitrate: "192k"},
	{Label: "1080p", Width: 1920, Height: 1080, VideoBitrate: "6000k", AudioBitrate: "256k"},
}

// QualityPresets returns the presets ordered from lowest to highest.
func QualityPresets() []QualityPreset {
	out := make([]QualityPreset, len(qualityPresets))
	copy(out, qualityPresets)
	return out
}

// PresetsFor returns presets no taller than the source and no taller than maxHeight.
// A non-positive sourceHeight yields no presets.
func PresetsFor(sourceHeight, maxHeight int) []QualityPreset {
	var out []QualityPreset
	for _, p := range qualityPresets {
		if p.Height > sourceHeight {
			continue
		}
		if maxHeight > 0 && p.Height > maxHeight {
			continue
		}
		out = append(out, p)
	}
	return out
}

// PresetByLabel looks up a preset such as "720p".
func PresetByLabel(label string) (QualityPreset, bool) {
	for _, p := range qualityPresets {
		if p.Label == label {
			return p, true
		}
	}
	return QualityPreset{}, false
}
