// Package qr provides the kiosk's camera capture and QR decode
// primitives: frame sources for MJPEG camera streams and a zxing-backed
// single-frame decoder.
package qr

import (
	"context"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Device is one camera available to the terminal.
type Device struct {
	ID    string
	Label string
}

// Camera enumerates and opens capture devices.
type Camera interface {
	Devices() ([]Device, error)
	Open(ctx context.Context, deviceID string) (FrameSource, error)
}

// FrameSource yields video frames until closed.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// Decoder decodes QR codes from single frames using the zxing reader.
type Decoder struct {
	reader gozxing.Reader
}

// NewDecoder creates a new QR frame decoder
func NewDecoder() *Decoder {
	return &Decoder{reader: qrcode.NewQRCodeReader()}
}

// Decode extracts a QR code's text from one frame. A frame without a
// readable code returns an error; callers treat that as noise, not a
// fault.
func (d *Decoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to binarize frame: %w", err)
	}

	result, err := d.reader.Decode(bmp, nil)
	if err != nil {
		return "", err
	}
	return result.GetText(), nil
}
