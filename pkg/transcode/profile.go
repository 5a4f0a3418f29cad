package transcode

import (
	"errors"
	"fmt"
)

// Profile is a fixed set of encoder settings applied to every stream.
type Profile struct {
	VideoCodec      string `mapstructure:"video-codec"`
	Preset          string `mapstructure:"preset"`
	VideoBitrate    string `mapstructure:"video-bitrate"`
	MaxRate         string `mapstructure:"max-rate"`
	BufferSize      string `mapstructure:"buffer-size"`
	PixelFormat     string `mapstructure:"pixel-format"`
	GOP             int    `mapstructure:"gop"`
	AudioCodec      string `mapstructure:"audio-codec"`
	AudioBitrate    string `mapstructure:"audio-bitrate"`
	AudioChannels   int    `mapstructure:"audio-channels"`
	AudioSampleRate int    `mapstructure:"audio-sample-rate"`
	Format          string `mapstructure:"format"`
	// Upper bound, in seconds, of the delay between reconnect attempts
	// when the source is interrupted.
	ReconnectDelayMax int `mapstructure:"reconnect-delay-max"`
}

// DefaultProfile encodes H.264/AAC in an FLV container, suitable for
// pushing to RTMP ingest endpoints.
var DefaultProfile = Profile{
	VideoCodec:        "libx264",
	Preset:            "veryfast",
	VideoBitrate:      "3500k",
	MaxRate:           "3500k",
	BufferSize:        "7000k",
	PixelFormat:       "yuv420p",
	GOP:               50,
	AudioCodec:        "aac",
	AudioBitrate:      "160k",
	AudioChannels:     2,
	AudioSampleRate:   44100,
	Format:            "flv",
	ReconnectDelayMax: 5,
}

func (p Profile) Validate() error {
	var errs []error
	required := []struct {
		name, value string
	}{
		{"video-codec", p.VideoCodec},
		{"preset", p.Preset},
		{"video-bitrate", p.VideoBitrate},
		{"max-rate", p.MaxRate},
		{"buffer-size", p.BufferSize},
		{"pixel-format", p.PixelFormat},
		{"audio-codec", p.AudioCodec},
		{"audio-bitrate", p.AudioBitrate},
		{"format", p.Format},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s cannot be empty", r.name))
		}
	}
	positive := []struct {
		name  string
		value int
	}{
		{"gop", p.GOP},
		{"audio-channels", p.AudioChannels},
		{"audio-sample-rate", p.AudioSampleRate},
		{"reconnect-delay-max", p.ReconnectDelayMax},
	}
	for _, r := range positive {
		if r.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive (got %d)", r.name, r.value))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid transcode profile: %w", errors.Join(errs...))
	}
	return nil
}
