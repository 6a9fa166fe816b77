package source

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Meta holds the stream properties reported by ffprobe.
type Meta struct {
	Width    int
	Height   int
	FPS      float64
	Duration float64
	Frames   int
}

// Probe reads video metadata via ffprobe. Files ffprobe cannot parse are not
// valid inputs.
func Probe(path string) (Meta, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames:format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	// Parse stdout only: ffprobe diagnostics land on stderr and must not
	// leak into the key=value stream
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Meta{}, fmt.Errorf("ffprobe %s: %v: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	return parseProbeOutput(stdout.String())
}

// parseProbeOutput parses ffprobe key=value lines. nb_frames is absent for
// some containers, in which case the count is derived from duration and fps.
func parseProbeOutput(out string) (Meta, error) {
	var m Meta

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		key, val, ok := strings.Cut(line, "=")
		if !ok || val == "N/A" {
			continue
		}

		switch key {
		case "width":
			m.Width, _ = strconv.Atoi(val)
		case "height":
			m.Height, _ = strconv.Atoi(val)
		case "nb_frames":
			m.Frames, _ = strconv.Atoi(val)
		case "duration":
			m.Duration, _ = strconv.ParseFloat(val, 64)
		case "r_frame_rate":
			num, den, ok := strings.Cut(val, "/")
			if !ok {
				m.FPS, _ = strconv.ParseFloat(val, 64)
				continue
			}
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 == nil && err2 == nil && d != 0 {
				m.FPS = n / d
			}
		}
	}

	if m.Width <= 0 || m.Height <= 0 {
		return Meta{}, fmt.Errorf("ffprobe reported no video stream dimensions")
	}
	if m.FPS <= 0 {
		return Meta{}, fmt.Errorf("ffprobe reported no frame rate")
	}
	if m.Frames == 0 {
		m.Frames = int(m.Duration * m.FPS)
	}
	if m.Frames <= 0 {
		return Meta{}, fmt.Errorf("could not determine frame count")
	}

	return m, nil
}
