package system

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("could not read file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("could not raise file limit")
	} else {
		log.Debug().Uint64("limit", rLimit.Cur).Msg("open file limit raised")
	}
}

// FindVideos lists candidate video files in a directory, sorted by name.
// Whether each candidate actually decodes is checked separately via ffprobe.
func FindVideos(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	extensions := []string{".mp4", ".mov", ".mkv", ".avi", ".webm", ".m4v"}
	var videos []string

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		for _, ext := range extensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				videos = append(videos, filepath.Join(dir, f.Name()))
				break
			}
		}
	}

	if len(videos) == 0 {
		return nil, fmt.Errorf("no video files found in %s", dir)
	}

	sort.Strings(videos)
	return videos, nil
}

// EnsureWritableDir creates the directory if needed and verifies it accepts
// writes by round-tripping a probe file.
func EnsureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, fmt.Sprintf("tmp_%d.probe", time.Now().UnixNano()))
	if err := os.WriteFile(probe, []byte("probe"), 0644); err != nil {
		return fmt.Errorf("no write permission in %s: %w", dir, err)
	}
	os.Remove(probe)

	return nil
}

func GetBestH264Encoder() (string, string) {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)

	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	for _, enc := range encoders {
		cmd := exec.Command("ffmpeg", "-encoders")
		out, err := cmd.CombinedOutput()
		if err == nil && strings.Contains(string(out), enc.name) {
			return enc.name, enc.args
		}
	}

	return "libx264", ""
}
