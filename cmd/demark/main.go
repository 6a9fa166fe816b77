// Command demark removes a fixed on-screen watermark from every video in a
// directory. The watermark is localized once by multi-frame voting inside a
// user-supplied region; each frame then has only that footprint regenerated
// through an external inpainting service, with a perceptual cache and a
// temporal skip policy keeping the expensive calls off visually redundant
// frames.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/demark/internal/config"
	"github.com/ivlev/demark/internal/inpaint"
	"github.com/ivlev/demark/internal/pipeline"
	"github.com/ivlev/demark/internal/source"
	"github.com/ivlev/demark/internal/system"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	inputPtr := flag.String("input", "", "directory containing input videos")
	outputPtr := flag.String("output", "", "output directory")
	regionPtr := flag.String("region", "", "watermark search region as x,y,w,h")
	regionFilePtr := flag.String("region-file", "", "YAML file to load/store the search region")
	previewPtr := flag.Bool("preview", false, "write a single inpainted preview frame and exit")
	inpaintURLPtr := flag.String("inpaint-url", "", "inpainting service base URL")
	qualityPtr := flag.Int("quality", 0, "video quality (0 - auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	debugFlag := flag.Bool("debug", false, "debug logging level")
	configFilename := flag.String("config", "", "config file")
	flag.Parse()

	cfg := config.Default()
	if *configFilename != "" {
		if err := config.LoadFile(*configFilename, &cfg); err != nil {
			log.Fatal().Err(err).Msg("config")
		}
	}
	applyFlags(&cfg, *inputPtr, *outputPtr, *regionPtr, *regionFilePtr, *inpaintURLPtr, *qualityPtr, *previewPtr, *debugFlag)

	// Set log level
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	if cfg.Info {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.Human {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	system.InitResourceLimits()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("processing cancelled")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("demark")
	}
}

func applyFlags(cfg *config.Config, input, output, regionSpec, regionFile, inpaintURL string, quality int, preview, debug bool) {
	if input != "" {
		cfg.InputDir = input
	}
	if output != "" {
		cfg.OutputDir = output
	}
	if regionSpec != "" {
		cfg.RegionSpec = regionSpec
	}
	if regionFile != "" {
		cfg.RegionFile = regionFile
	}
	if inpaintURL != "" {
		cfg.InpaintURL = inpaintURL
	}
	if quality != 0 {
		cfg.Quality = quality
	}
	if preview {
		cfg.Preview = true
	}
	if debug {
		cfg.Debug = true
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if err := system.EnsureWritableDir(cfg.OutputDir); err != nil {
		return err
	}

	videos, err := validVideos(ctx, cfg.InputDir)
	if err != nil {
		return err
	}

	inpainter := inpaint.NewClient(cfg.InpaintURL)
	icfg := inpaint.Config{
		Steps:       cfg.InpaintSteps,
		Strategy:    inpaint.Strategy(cfg.InpaintStrategy),
		CropMargin:  cfg.InpaintCropMargin,
		ResizeLimit: cfg.InpaintResizeLimit,
	}

	encoderName := cfg.VideoEncoder
	if encoderName == "" {
		encoderName, _ = system.GetBestH264Encoder()
		if encoderName != "libx264" {
			log.Info().Str("encoder", encoderName).Msg("hardware acceleration detected")
		}
	}
	quality := cfg.Quality
	if quality == 0 {
		switch encoderName {
		case "h264_videotoolbox":
			quality = 75
		case "h264_nvenc":
			quality = 28
		default:
			quality = 23
		}
	}

	// The localization artifact is computed once, from the first video,
	// and reused read-only for the rest of the batch.
	var art *pipeline.Artifact

	for _, path := range videos {
		if err := ctx.Err(); err != nil {
			return err
		}

		base := filepath.Base(path)
		start := time.Now()
		log.Info().Str("video", path).Msg("processing")

		src, err := source.NewFFmpegSource(ctx, path)
		if err != nil {
			return err
		}

		if art == nil {
			art, err = localize(src, cfg)
			if err != nil {
				src.Close()
				return err
			}
			log.Info().
				Str("bounds", art.Bounds.String()).
				Msg("watermark localized")
		} else if err := art.ValidateFrame(src.Bounds()); err != nil {
			src.Close()
			return fmt.Errorf("%s: %w", base, err)
		}

		if cfg.Preview {
			previewPath, err := writePreview(ctx, src, art, inpainter, icfg, cfg)
			src.Close()
			if err != nil {
				return err
			}
			log.Info().Str("preview", previewPath).Msg("preview written; re-run without -preview to process")
			return nil
		}

		stats, err := processVideo(ctx, path, src, art, inpainter, icfg, cfg, encoderName, quality)
		src.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", base, err)
		}

		log.Info().
			Str("resolution", fmt.Sprintf("%dx%d", src.Bounds().Dx(), src.Bounds().Dy())).
			Float64("fps", src.FPS()).
			Int("frames", stats.Frames).
			Int("regenerated", stats.Regenerated).
			Int("skipped", stats.Skipped).
			Int("cacheHits", stats.Cache.Hits).
			Int("cacheMisses", stats.Cache.Misses).
			Int64("duration(ms)", time.Since(start).Milliseconds()).
			Msg(base)
	}

	return nil
}

// validVideos enumerates candidate files and probes them in parallel,
// keeping the name order of those ffprobe accepts.
func validVideos(ctx context.Context, dir string) ([]string, error) {
	candidates, err := system.FindVideos(dir)
	if err != nil {
		return nil, err
	}

	valid := make([]bool, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, path := range candidates {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := source.Probe(path); err != nil {
				log.Warn().Str("video", path).Err(err).Msg("skipping invalid video")
				return nil
			}
			valid[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var videos []string
	for i, ok := range valid {
		if ok {
			videos = append(videos, candidates[i])
		}
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("no valid video files found in %s", dir)
	}

	return videos, nil
}
