package services

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/vistacks/kiosk-agent/internal/models"
	"github.com/vistacks/kiosk-agent/pkg/qr"
)

var (
	// ErrScanActive indicates a scan episode is already running
	ErrScanActive = errors.New("a scan is already in progress")

	// ErrNoCamera indicates no camera device is available
	ErrNoCamera = errors.New("no camera devices found")

	// ErrInvalidScanMode indicates an unknown scan mode was requested
	ErrInvalidScanMode = errors.New("unknown scan mode")
)

// FrameDecoder extracts a code from a single frame. Frames without a
// readable code return an error; the decode loop treats that as noise.
type FrameDecoder interface {
	Decode(img image.Image) (string, error)
}

// AccessResolver resolves an accepted QR code into a check-in record. QR
// episodes own this call so the flow controller never issues a duplicate.
type AccessResolver interface {
	AccessCodeCheckin(ctx context.Context, code string) (models.Visitor, error)
}

// ScanSink receives the outcome of an accepted scan episode.
type ScanSink interface {
	HandleScanSuccess(ctx context.Context, result models.ScanResult) error
}

// ScanService turns a continuous decode-event stream into at most one
// accepted logical scan per episode. A raw decode is accepted only when the
// single-flight guard is clear AND the debounce window since the last
// accepted scan has elapsed; the guard is set synchronously at acceptance,
// before any blocking work, so a second raw read can never start a
// concurrent check-in.
type ScanService struct {
	camera   qr.Camera
	decoder  FrameDecoder
	resolver AccessResolver
	sink     ScanSink
	logger   *logrus.Logger

	debounce       time.Duration
	simulatedDelay time.Duration
	resolveTimeout time.Duration

	mu          sync.Mutex
	mode        models.ScanMode
	state       models.ScanState
	scanning    bool
	processing  bool
	lastScan    time.Time
	result      string
	errMessage  string
	deviceLabel string
	cancel      context.CancelFunc
	frames      qr.FrameSource
	episode     uint64

	// now is the debounce time source; overridden in tests
	now func() time.Time
}

// NewScanService creates a new scan pipeline in the idle state.
func NewScanService(camera qr.Camera, decoder FrameDecoder, resolver AccessResolver, sink ScanSink, logger *logrus.Logger, debounce, simulatedDelay time.Duration) *ScanService {
	return &ScanService{
		camera:         camera,
		decoder:        decoder,
		resolver:       resolver,
		sink:           sink,
		logger:         logger,
		debounce:       debounce,
		simulatedDelay: simulatedDelay,
		resolveTimeout: 30 * time.Second,
		state:          models.ScanIdle,
		mode:           models.ScanModeQR,
		now:            time.Now,
	}
}

// Snapshot returns the current scan session state for rendering.
func (s *ScanService) Snapshot() models.ScanSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ScanSession{
		Mode:         s.mode,
		State:        s.state,
		IsScanning:   s.scanning,
		Result:       s.result,
		ErrorMessage: s.errMessage,
		Device:       s.deviceLabel,
	}
}

// Start begins a scan episode in the given mode. QR mode opens the camera
// and runs the decode loop; the simulated face and fingerprint modes run a
// mock capture timer behind the same interface and guard discipline.
func (s *ScanService) Start(mode models.ScanMode) error {
	if !mode.IsValid() {
		return ErrInvalidScanMode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning || s.processing {
		return ErrScanActive
	}

	s.mode = mode
	s.result = ""
	s.errMessage = ""

	if mode != models.ScanModeQR {
		loopCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.scanning = true
		s.state = models.ScanScanning
		s.episode++
		go s.simulateCapture(loopCtx, mode, s.episode)
		return nil
	}

	devices, err := s.camera.Devices()
	if err != nil {
		s.state = models.ScanError
		s.errMessage = "Failed to list camera devices"
		s.logger.WithError(err).Error("Camera enumeration failed")
		return err
	}
	if len(devices) == 0 {
		s.state = models.ScanError
		s.errMessage = "No camera devices found"
		return ErrNoCamera
	}

	device := selectDevice(devices)

	loopCtx, cancel := context.WithCancel(context.Background())
	frames, err := s.camera.Open(loopCtx, device.ID)
	if err != nil {
		cancel()
		s.state = models.ScanError
		s.errMessage = "Failed to access camera"
		s.logger.WithError(err).WithField("device", device.Label).Error("Camera open failed")
		return err
	}

	s.cancel = cancel
	s.frames = frames
	s.deviceLabel = device.Label
	s.scanning = true
	s.state = models.ScanScanning
	s.episode++
	go s.decodeLoop(loopCtx, frames, s.episode)
	return nil
}

// selectDevice prefers a camera whose label mentions back or rear,
// otherwise the first available device.
func selectDevice(devices []qr.Device) qr.Device {
	device, found := lo.Find(devices, func(d qr.Device) bool {
		label := strings.ToLower(d.Label)
		return strings.Contains(label, "back") || strings.Contains(label, "rear")
	})
	if !found {
		device = devices[0]
	}
	return device
}

// Stop tears down the current episode and resets the session to its
// initial state. Idempotent; safe to call from any state. The camera is
// released here, before any future Start can reopen it.
func (s *ScanService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.episode++
	s.stopLoopLocked()
	s.scanning = false
	s.processing = false
	s.result = ""
	s.errMessage = ""
	s.deviceLabel = ""
	s.lastScan = time.Time{}
	s.state = models.ScanIdle
}

// OnDecode offers one raw decode event to the pipeline and reports whether
// it was accepted. Rejected events (guard held, debounce window open, or no
// episode running) are dropped silently: duplicate suppression, not a
// fault. Push-style scanner hardware feeds events in here directly.
func (s *ScanService) OnDecode(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	s.mu.Lock()
	if !s.scanning || s.processing {
		s.mu.Unlock()
		return false
	}
	if !s.lastScan.IsZero() && s.now().Sub(s.lastScan) < s.debounce {
		s.mu.Unlock()
		return false
	}

	// Accept. The guard goes up before anything can block so raw events
	// that race the loop teardown cannot start a second episode.
	s.processing = true
	s.lastScan = s.now()
	s.result = code
	s.scanning = false
	s.state = models.ScanAccepted
	s.stopLoopLocked()
	mode := s.mode
	episode := s.episode
	s.mu.Unlock()

	go s.resolve(episode, mode, code)
	return true
}

// decodeLoop reads frames and offers every decoded code to OnDecode until
// the episode context is cancelled.
func (s *ScanService) decodeLoop(ctx context.Context, frames qr.FrameSource, episode uint64) {
	for {
		img, err := frames.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.failEpisode(episode, "Camera read failed")
			return
		}

		code, err := s.decoder.Decode(img)
		if err != nil || code == "" {
			// Most frames carry no readable code.
			continue
		}
		s.OnDecode(code)
	}
}

// simulateCapture stands in for the face and fingerprint hardware: after a
// fixed capture delay it emits a mock identity token through the same
// acceptance path as a real decode.
func (s *ScanService) simulateCapture(ctx context.Context, mode models.ScanMode, episode uint64) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.simulatedDelay):
	}

	s.mu.Lock()
	if s.episode != episode {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	prefix := "FACE_"
	if mode == models.ScanModeFingerprint {
		prefix = "FP_"
	}
	s.OnDecode(prefix + mockScanID())
}

// mockScanID fabricates a short identity token for the simulated modes.
func mockScanID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
}

// resolve finishes an accepted episode: QR codes are exchanged for a
// check-in record with the backend, then the outcome is handed to the flow
// controller. Once the resulting action settles the guard drops and the
// pipeline returns to idle, ready for a fresh episode.
func (s *ScanService) resolve(episode uint64, mode models.ScanMode, code string) {
	ctx, cancelCtx := context.WithTimeout(context.Background(), s.resolveTimeout)
	defer cancelCtx()

	result := models.ScanResult{Mode: mode, Value: code}

	if mode == models.ScanModeQR {
		record, err := s.resolver.AccessCodeCheckin(ctx, code)
		if err != nil {
			s.logger.WithError(err).Warn("QR check-in failed")
			s.mu.Lock()
			if s.episode == episode {
				s.processing = false
				s.result = ""
				s.state = models.ScanError
				s.errMessage = userMessage(err, "Check-in failed")
			}
			s.mu.Unlock()
			return
		}
		result.Visitor = &record
	}

	// The episode may have been torn down while the backend call was in
	// flight. A stopped episode's record must never reach the flow
	// controller.
	s.mu.Lock()
	if s.episode != episode {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.sink.HandleScanSuccess(ctx, result); err != nil {
		s.logger.WithError(err).Error("Flow controller rejected scan result")
	}

	s.mu.Lock()
	if s.episode == episode {
		s.processing = false
		s.result = ""
		s.state = models.ScanIdle
	}
	s.mu.Unlock()
}

// failEpisode marks a device failure for the given episode and leaves the
// pipeline in the retryable error state.
func (s *ScanService) failEpisode(episode uint64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.episode != episode {
		return
	}
	s.stopLoopLocked()
	s.scanning = false
	s.state = models.ScanError
	s.errMessage = message
}

// stopLoopLocked cancels the decode loop and releases the camera. Caller
// holds the mutex.
func (s *ScanService) stopLoopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.frames != nil {
		if err := s.frames.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close camera stream")
		}
		s.frames = nil
	}
}
