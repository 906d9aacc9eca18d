package qr

import (
	"image"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRoundTrip(t *testing.T) {
	writer := qrcode.NewQRCodeWriter()
	frame, err := writer.Encode("KIOSK-QR-12345", gozxing.BarcodeFormat_QR_CODE, 256, 256, nil)
	require.NoError(t, err)

	decoder := NewDecoder()
	text, err := decoder.Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, "KIOSK-QR-12345", text)
}

func TestDecodeFrameWithoutCode(t *testing.T) {
	decoder := NewDecoder()

	_, err := decoder.Decode(image.NewGray(image.Rect(0, 0, 64, 64)))
	assert.Error(t, err, "a codeless frame is noise, not a successful decode")
}
