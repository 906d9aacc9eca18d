package qr

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevicesStableOrder(t *testing.T) {
	camera := NewMJPEGCamera(map[string]string{
		"front": "http://127.0.0.1:8082/stream",
		"back":  "http://127.0.0.1:8081/stream",
	})

	devices, err := camera.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "back", devices[0].Label)
	assert.Equal(t, "front", devices[1].Label)
}

func TestOpenUnknownDevice(t *testing.T) {
	camera := NewMJPEGCamera(nil)

	_, err := camera.Open(context.Background(), "back")
	assert.Error(t, err)
}

func TestOpenRejectsNonMJPEGStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("not a camera"))
	}))
	defer server.Close()

	camera := NewMJPEGCamera(map[string]string{"back": server.URL})
	_, err := camera.Open(context.Background(), "back")
	assert.Error(t, err)
}

func TestStreamYieldsFrames(t *testing.T) {
	var frame bytes.Buffer
	require.NoError(t, jpeg.Encode(&frame, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writer := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+writer.Boundary())
		w.WriteHeader(http.StatusOK)

		for i := 0; i < 2; i++ {
			part, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/jpeg"}})
			if err != nil {
				return
			}
			part.Write(frame.Bytes())
		}
		writer.Close()
	}))
	defer server.Close()

	camera := NewMJPEGCamera(map[string]string{"back": server.URL})
	stream, err := camera.Open(context.Background(), "back")
	require.NoError(t, err)
	defer stream.Close()

	img, err := stream.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	img, err = stream.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dy())
}
