package inpaint

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Client calls a lama-cleaner-compatible HTTP server. Region and mask are
// posted as PNGs; the response is the regenerated region. There is no
// timeout on the call itself: a hung server blocks the pipeline, callers
// needing bounded latency must cancel through the context.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the inpainting server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{},
	}
}

// Inpaint posts the region and its binary mask and returns the regenerated
// region, normalized to 8-bit and dimension-checked against the request.
func (c *Client) Inpaint(ctx context.Context, region *image.RGBA, mask *image.Gray, cfg Config) (*image.RGBA, error) {
	body, contentType, err := encodeRequest(region, mask, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/inpaint", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d after %dms: %s",
			ErrService, resp.StatusCode, time.Since(start).Milliseconds(), bytes.TrimSpace(msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	result, err := decodeResponse(data, resp.Header.Get("Content-Type"), region.Bounds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	return result, nil
}

func encodeRequest(region *image.RGBA, mask *image.Gray, cfg Config) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	imagePart, err := mw.CreateFormFile("image", "region.png")
	if err != nil {
		return nil, "", err
	}
	if err := png.Encode(imagePart, region); err != nil {
		return nil, "", err
	}

	maskPart, err := mw.CreateFormFile("mask", "mask.png")
	if err != nil {
		return nil, "", err
	}
	if err := png.Encode(maskPart, mask); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"ldmSteps":              strconv.Itoa(cfg.Steps),
		"hdStrategy":            strategyField(cfg.Strategy),
		"hdStrategyCropMargin":  strconv.Itoa(cfg.CropMargin),
		"hdStrategyResizeLimit": strconv.Itoa(cfg.ResizeLimit),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return body, mw.FormDataContentType(), nil
}

func strategyField(s Strategy) string {
	switch s {
	case StrategyResize:
		return "Resize"
	case StrategyCrop:
		return "Crop"
	default:
		return "Original"
	}
}
