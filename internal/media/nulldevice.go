package media

import (
	"context"
	"errors"
)

// ErrDenied is what a NullDevice returns when configured to refuse access,
// standing in for the user rejecting the browser permission prompt.
var ErrDenied = errors.New("media access denied")

// NullDevice is a Device with no hardware behind it: tracks open instantly
// and stills are a fixed placeholder frame. The terminal client uses it
// (terminals have no camera); tests use it with the Deny flags set.
type NullDevice struct {
	DenyVideo bool
	DenyAudio bool
}

type nullTrack struct {
	kind    string
	stopped bool
}

func (t *nullTrack) Kind() string { return t.kind }

func (t *nullTrack) Close() error {
	t.stopped = true
	return nil
}

// placeholderFrame is a 1x1 PNG.
var placeholderFrame = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type nullVideoTrack struct {
	nullTrack
}

func (t *nullVideoTrack) Grab() ([]byte, error) {
	if t.stopped {
		return nil, errors.New("track stopped")
	}
	return placeholderFrame, nil
}

func (d *NullDevice) OpenVideo(_ context.Context) (Track, error) {
	if d.DenyVideo {
		return nil, ErrDenied
	}
	return &nullVideoTrack{nullTrack{kind: "video"}}, nil
}

func (d *NullDevice) OpenAudio(_ context.Context) (Track, error) {
	if d.DenyAudio {
		return nil, ErrDenied
	}
	return &nullTrack{kind: "audio"}, nil
}
