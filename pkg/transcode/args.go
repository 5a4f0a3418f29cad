package transcode

import "strconv"

// Args returns the ffmpeg argument list that reads from source, re-encodes
// it with the given profile, and pushes the result to destination.
//
// The argument list is a contract with ffmpeg; in particular the reconnect
// flags are what keep a stream alive across short source interruptions.
func Args(source, destination string, p Profile) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		// read input at its native frame rate
		"-re",
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_on_network_error", "1",
		"-reconnect_delay_max", strconv.Itoa(p.ReconnectDelayMax),
		"-i", source,
	}

	args = append(args,
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-b:v", p.VideoBitrate,
		"-maxrate", p.MaxRate,
		"-bufsize", p.BufferSize,
		"-pix_fmt", p.PixelFormat,
		"-g", strconv.Itoa(p.GOP),
	)

	args = append(args,
		"-c:a", p.AudioCodec,
		"-b:a", p.AudioBitrate,
		"-ac", strconv.Itoa(p.AudioChannels),
		"-ar", strconv.Itoa(p.AudioSampleRate),
	)

	return append(args, "-f", p.Format, destination)
}
