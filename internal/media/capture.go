// Package media models the proctoring capture capability: camera, microphone
// and one identity photo. The original web client parked MediaStream handles
// on window globals with no owner; here capture is an explicit object whose
// creator is responsible for disposal, and disposal is reachable from every
// exit path.
package media

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Capture errors.
var (
	ErrNoCamera      = errors.New("camera not granted")
	ErrNoSnapshot    = errors.New("video device cannot produce stills")
	ErrCaptureClosed = errors.New("capture already released")
)

// Track is a live media stream handle. Closing stops the underlying device.
type Track interface {
	Kind() string // "video" or "audio"
	Close() error
}

// FrameGrabber is implemented by video tracks that can encode the current
// frame as a still image.
type FrameGrabber interface {
	Grab() ([]byte, error)
}

// Device abstracts how tracks are acquired. The browser shell supplies the
// real implementation (it owns getUserMedia); tests and headless runs use a
// fake. Each Open call is one permission request — a denial is surfaced and
// never retried automatically.
type Device interface {
	OpenVideo(ctx context.Context) (Track, error)
	OpenAudio(ctx context.Context) (Track, error)
}

// Capture is the preflight gate state: agreement, camera, microphone and one
// captured photo. All four must hold before the exam may start. Later
// screens reference the same capture (no re-acquisition); only Close stops
// the tracks.
type Capture struct {
	mu     sync.Mutex
	device Device
	log    zerolog.Logger

	camera Track
	mic    Track
	photo  []byte
	agreed bool
	closed bool
}

// NewCapture wraps a device. Nothing is acquired yet.
func NewCapture(device Device, log zerolog.Logger) *Capture {
	return &Capture{
		device: device,
		log:    log.With().Str("component", "capture").Logger(),
	}
}

// Agree records explicit acceptance of the terms.
func (c *Capture) Agree() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agreed = true
}

// RequestCamera asks the device for a video track. On success the handle is
// held for the rest of the session; on denial the flag stays false.
func (c *Capture) RequestCamera(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCaptureClosed
	}
	if c.camera != nil {
		return nil
	}
	track, err := c.device.OpenVideo(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Camera access denied")
		return err
	}
	c.camera = track
	return nil
}

// RequestMicrophone asks the device for an audio track.
func (c *Capture) RequestMicrophone(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCaptureClosed
	}
	if c.mic != nil {
		return nil
	}
	track, err := c.device.OpenAudio(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Microphone access denied")
		return err
	}
	c.mic = track
	return nil
}

// TakePhoto grabs a still from the live camera track. The photo stays local
// to this session; it is not uploaded.
func (c *Capture) TakePhoto() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCaptureClosed
	}
	if c.camera == nil {
		return ErrNoCamera
	}
	grabber, ok := c.camera.(FrameGrabber)
	if !ok {
		return ErrNoSnapshot
	}
	frame, err := grabber.Grab()
	if err != nil {
		return err
	}
	c.photo = frame
	return nil
}

// RetakePhoto discards the captured still so a new one can be taken.
func (c *Capture) RetakePhoto() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.photo = nil
}

// Photo returns the captured still, nil if none.
func (c *Capture) Photo() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.photo
}

// CameraGranted reports whether a live video track is held.
func (c *Capture) CameraGranted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera != nil
}

// MicrophoneGranted reports whether a live audio track is held.
func (c *Capture) MicrophoneGranted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mic != nil
}

// Ready reports whether all four preflight gates hold: agreement, camera,
// microphone and a captured photo.
func (c *Capture) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.agreed && c.camera != nil && c.mic != nil && c.photo != nil && !c.closed
}

// VideoTrack exposes the held camera track for display/uplink. Callers must
// not close it.
func (c *Capture) VideoTrack() Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.camera
}

// Close stops both tracks. Idempotent; the first error wins but both tracks
// are always stopped.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var first error
	if c.camera != nil {
		if err := c.camera.Close(); err != nil {
			first = err
		}
		c.camera = nil
	}
	if c.mic != nil {
		if err := c.mic.Close(); err != nil && first == nil {
			first = err
		}
		c.mic = nil
	}
	c.photo = nil
	c.log.Debug().Msg("Capture released")
	return first
}

// WithCapture runs fn with a fresh capture and guarantees release on every
// path out, panic included.
func WithCapture(device Device, log zerolog.Logger, fn func(*Capture) error) error {
	c := NewCapture(device, log)
	defer c.Close()
	return fn(c)
}
