package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
)

// FFmpegSource decodes frames from a video file by piping raw RGBA out of an
// ffmpeg subprocess. Sequential decoding runs one long-lived process; random
// access seeks with a separate short-lived process per request.
type FFmpegSource struct {
	path string
	meta Meta
	ctx  context.Context

	cmd    *exec.Cmd
	stdout io.ReadCloser
	errLog bytes.Buffer
}

// NewFFmpegSource probes the file and prepares a source. The sequential
// decoder is started lazily on the first Next call.
func NewFFmpegSource(ctx context.Context, path string) (*FFmpegSource, error) {
	meta, err := Probe(path)
	if err != nil {
		return nil, err
	}

	return &FFmpegSource{path: path, meta: meta, ctx: ctx}, nil
}

func (s *FFmpegSource) FrameCount() int { return s.meta.Frames }

func (s *FFmpegSource) FPS() float64 { return s.meta.FPS }

func (s *FFmpegSource) Duration() float64 { return s.meta.Duration }

func (s *FFmpegSource) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.meta.Width, s.meta.Height)
}

// FrameAt decodes the single frame at the given index by seeking to its
// timestamp.
func (s *FFmpegSource) FrameAt(index int) (*image.RGBA, error) {
	if index < 0 || index >= s.meta.Frames {
		return nil, fmt.Errorf("frame index %d out of range [0, %d)", index, s.meta.Frames)
	}

	ts := float64(index) / s.meta.FPS
	cmd := exec.CommandContext(s.ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%f", ts),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)

	var out, errLog bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errLog

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg seek to frame %d: %v\nLog: %s", index, err, errLog.String())
	}

	frame := image.NewRGBA(s.Bounds())
	if out.Len() != len(frame.Pix) {
		return nil, fmt.Errorf("ffmpeg produced %d bytes for frame %d, want %d", out.Len(), index, len(frame.Pix))
	}
	copy(frame.Pix, out.Bytes())

	return frame, nil
}

// Next returns the next frame of the sequential stream, io.EOF after the
// last one.
func (s *FFmpegSource) Next() (*image.RGBA, error) {
	if s.cmd == nil {
		if err := s.startSequential(); err != nil {
			return nil, err
		}
	}

	frame := image.NewRGBA(s.Bounds())
	if _, err := io.ReadFull(s.stdout, frame.Pix); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("truncated frame from ffmpeg: %s", s.errLog.String())
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}

	return frame, nil
}

func (s *FFmpegSource) startSequential() error {
	cmd := exec.CommandContext(s.ctx, "ffmpeg",
		"-i", s.path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	cmd.Stderr = &s.errLog

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	s.cmd = cmd
	s.stdout = stdout
	return nil
}

func (s *FFmpegSource) Close() error {
	if s.cmd == nil {
		return nil
	}

	// Closing the pipe mid-stream makes ffmpeg exit with a write error;
	// that is the expected way to stop early, so Wait errors are dropped.
	s.stdout.Close()
	s.cmd.Wait()
	s.cmd = nil
	return nil
}
