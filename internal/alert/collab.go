package alert

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Log-backed stand-ins for the vendor notification/audio/haptics SDKs, used
// by the daemon when no real presentation layer is attached.

type LogNotifier struct{}

func (LogNotifier) RequestPermission(ctx context.Context) error { return nil }

func (LogNotifier) Display(ctx context.Context, n Notification) (string, error) {
	id := uuid.NewString()
	log.Printf("notify[%s]: %s: %s", id, n.Title, n.Body)
	return id, nil
}

func (LogNotifier) Cancel(ctx context.Context, handle string) error {
	log.Printf("notify[%s]: cancelled", handle)
	return nil
}

type logSound struct{ id string }

func (s *logSound) Stop() error {
	log.Printf("sound[%s]: stopped", s.id)
	return nil
}

func (s *logSound) Unload() error {
	log.Printf("sound[%s]: unloaded", s.id)
	return nil
}

type LogSoundPlayer struct{}

func (LogSoundPlayer) PlayLooping(ctx context.Context) (Sound, error) {
	s := &logSound{id: uuid.NewString()}
	log.Printf("sound[%s]: looping", s.id)
	return s, nil
}

type LogHaptics struct{}

func (LogHaptics) Pulse() { log.Printf("haptics: pulse") }
