package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ivlev/demark/internal/config"
	"github.com/ivlev/demark/internal/detect"
	"github.com/ivlev/demark/internal/inpaint"
	"github.com/ivlev/demark/internal/pipeline"
	"github.com/ivlev/demark/internal/region"
	"github.com/ivlev/demark/internal/source"
	"github.com/ivlev/demark/internal/system"
	"github.com/ivlev/demark/internal/video"
)

const previewMinBrightness = 10

// localize resolves the search region and runs the voter against the first
// video of the batch.
func localize(src source.Source, cfg config.Config) (*pipeline.Artifact, error) {
	roi, err := resolveRegion(cfg)
	if err != nil {
		return nil, err
	}
	if err := roi.Validate(src.Bounds()); err != nil {
		return nil, err
	}

	voter := &detect.Voter{
		NumSamples:   cfg.NumSamples,
		MinVotes:     cfg.MinVotes,
		DilationSize: cfg.DilationSize,
	}

	art, err := pipeline.Localize(src, roi.Rect(), voter, cfg.Margin)
	if err != nil {
		return nil, err
	}

	// Persist the search region so later batches skip -region
	if cfg.RegionFile != "" && cfg.RegionSpec != "" {
		f := &region.File{Version: "1.0", Region: roi}
		f.Frame.W = src.Bounds().Dx()
		f.Frame.H = src.Bounds().Dy()
		if err := region.Save(f, cfg.RegionFile); err != nil {
			log.Warn().Err(err).Str("file", cfg.RegionFile).Msg("could not save region file")
		}
	}

	return art, nil
}

// resolveRegion picks the region provider: the -region flag wins, then the
// region file. The region is established at most once per batch.
func resolveRegion(cfg config.Config) (region.Region, error) {
	if cfg.RegionSpec != "" {
		return region.Parse(cfg.RegionSpec)
	}

	if cfg.RegionFile != "" {
		f, err := region.Load(cfg.RegionFile)
		if err == nil {
			return f.Region, nil
		}
		if !os.IsNotExist(err) {
			return region.Region{}, err
		}
	}

	return region.Region{}, fmt.Errorf("%w: pass -region x,y,w,h or -region-file", region.ErrNotSet)
}

// writePreview inpaints one representative frame and writes it as a PNG next
// to where the processed videos would go, as a stand-in for an interactive
// preview window.
func writePreview(ctx context.Context, src source.Source, art *pipeline.Artifact, inp inpaint.Inpainter, icfg inpaint.Config, cfg config.Config) (string, error) {
	frame, err := detect.FirstValidFrame(src, cfg.NumSamples, previewMinBrightness)
	if err != nil {
		return "", err
	}

	proc := pipeline.NewProcessor(art, inp, pipeline.Options{
		CacheSize:            1,
		SimilarityThreshold:  cfg.SimilarityThreshold,
		KeyframeInterval:     cfg.KeyframeInterval,
		SceneChangeThreshold: cfg.SceneChangeThreshold,
		Inpaint:              icfg,
	})

	out := image.NewRGBA(frame.Bounds())
	if err := proc.ProcessFrame(ctx, out, frame, 0); err != nil {
		return "", err
	}

	path := filepath.Join(cfg.OutputDir, "preview.png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, out); err != nil {
		return "", err
	}
	return path, nil
}

// processVideo runs the full pipeline for one video.
func processVideo(ctx context.Context, path string, src source.Source, art *pipeline.Artifact, inp inpaint.Inpainter, icfg inpaint.Config, cfg config.Config, encoderName string, quality int) (pipeline.Stats, error) {
	// Keep the cache within a bounded share of memory; region buffers can
	// be large at high resolutions
	regionBytes := art.Bounds.Dx() * art.Bounds.Dy() * 4
	cacheSize := system.SuggestCacheCapacity(cfg.CacheSize, regionBytes)
	if cacheSize < cfg.CacheSize {
		log.Warn().
			Int("requested", cfg.CacheSize).
			Int("capacity", cacheSize).
			Msg("frame cache capacity reduced to fit memory")
	}

	proc := pipeline.NewProcessor(art, inp, pipeline.Options{
		CacheSize:            cacheSize,
		SimilarityThreshold:  cfg.SimilarityThreshold,
		KeyframeInterval:     cfg.KeyframeInterval,
		SceneChangeThreshold: cfg.SceneChangeThreshold,
		Inpaint:              icfg,
	})

	name := filepath.Base(path)
	outPath := filepath.Join(cfg.OutputDir, strings.TrimSuffix(name, filepath.Ext(name))+".mp4")
	w, err := video.NewFFmpegWriter(ctx, outPath,
		src.Bounds().Dx(), src.Bounds().Dy(), src.FPS(), encoderName, quality)
	if err != nil {
		return pipeline.Stats{}, err
	}

	stats, runErr := proc.Run(ctx, src, w)
	if err := w.Close(); runErr == nil && err != nil {
		return stats, err
	}
	return stats, runErr
}
