package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
)

// Writer consumes an ordered stream of processed frames and persists them as
// an encoded video.
type Writer interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// FFmpegWriter encodes frames by piping raw RGBA into an ffmpeg subprocess.
type FFmpegWriter struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	errLog bytes.Buffer
	w, h   int
}

// NewFFmpegWriter starts an encoder writing to path. Frames must match the
// given dimensions.
func NewFFmpegWriter(ctx context.Context, path string, w, h int, fps float64, encoderName string, quality int) (*FFmpegWriter, error) {
	args := buildFFmpegArgs(path, w, h, fps, encoderName, quality)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = &bytes.Buffer{}

	writer := &FFmpegWriter{cmd: cmd, w: w, h: h}
	cmd.Stderr = &writer.errLog

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	writer.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return writer, nil
}

func buildFFmpegArgs(path string, w, h int, fps float64, encoderName string, quality int) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%f", fps),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	}

	// Качество в зависимости от энкодера
	switch encoderName {
	case "h264_videotoolbox":
		bitrate := quality * 100
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", quality), "-preset", "medium")
	}

	args = append(args, path)
	return args
}

// WriteFrame sends one frame to the encoder.
func (e *FFmpegWriter) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != e.w || b.Dy() != e.h {
		return fmt.Errorf("frame %dx%d does not match encoder %dx%d", b.Dx(), b.Dy(), e.w, e.h)
	}

	return e.writeRawRGBA(e.stdin, img)
}

func (e *FFmpegWriter) writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// Close finishes the stream and waits for ffmpeg, surfacing its log when
// encoding failed.
func (e *FFmpegWriter) Close() error {
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %v\nLog: %s", err, e.errLog.String())
	}
	return nil
}
