package qr

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
)

// MJPEGCamera exposes the terminal's cameras as MJPEG-over-HTTP streams,
// the interface most kiosk camera modules ship with. Devices are
// configured as label to stream-URL pairs; the label doubles as the
// device id.
type MJPEGCamera struct {
	streams map[string]string
	client  *http.Client
}

// NewMJPEGCamera creates a camera backed by the configured streams.
func NewMJPEGCamera(streams map[string]string) *MJPEGCamera {
	return &MJPEGCamera{
		streams: streams,
		// No client timeout: an MJPEG stream is long-lived by design.
		// Lifetime is governed by the context passed to Open.
		client: &http.Client{},
	}
}

// Devices lists the configured camera streams in stable label order.
func (c *MJPEGCamera) Devices() ([]Device, error) {
	labels := make([]string, 0, len(c.streams))
	for label := range c.streams {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	devices := make([]Device, 0, len(labels))
	for _, label := range labels {
		devices = append(devices, Device{ID: label, Label: label})
	}
	return devices, nil
}

// Open connects to a device's MJPEG stream. Cancelling ctx tears the
// stream down.
func (c *MJPEGCamera) Open(ctx context.Context, deviceID string) (FrameSource, error) {
	streamURL, ok := c.streams[deviceID]
	if !ok {
		return nil, fmt.Errorf("unknown camera device: %s", deviceID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("camera stream is not MJPEG (content type %q)", resp.Header.Get("Content-Type"))
	}

	return &mjpegStream{
		resp:  resp,
		parts: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// mjpegStream reads JPEG frames off one multipart stream.
type mjpegStream struct {
	resp  *http.Response
	parts *multipart.Reader
}

// NextFrame blocks until the next frame arrives or the stream ends.
func (s *mjpegStream) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := s.parts.NextPart()
	if err != nil {
		return nil, fmt.Errorf("camera stream ended: %w", err)
	}

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// Close releases the stream connection.
func (s *mjpegStream) Close() error {
	return s.resp.Body.Close()
}
