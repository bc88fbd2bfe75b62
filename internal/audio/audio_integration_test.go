//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/gen2brain/malgo"
)

// These tests require actual audio hardware and are skipped by default.
// Run with: go test -tags=integration ./internal/audio

func openBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend_Devices_Integration(t *testing.T) {
	b := openBackend(t)
	for _, kind := range []malgo.DeviceType{malgo.Playback, malgo.Capture} {
		devices, err := b.Devices(kind)
		if err != nil {
			t.Fatalf("Devices() error = %v", err)
		}
		for i, d := range devices {
			t.Logf("  [%d] %s", i, d.Name())
		}
	}
}

func TestSink_Tone_Integration(t *testing.T) {
	b := openBackend(t)
	s, err := b.OpenSink(DefaultConfig())
	if err != nil {
		t.Fatalf("OpenSink() error = %v", err)
	}
	defer s.Close()

	_ = s.Start(700, 0.25)
	time.Sleep(200 * time.Millisecond)
	_ = s.Stop()
	time.Sleep(50 * time.Millisecond)
}

func TestCapture_StartStop_Integration(t *testing.T) {
	b := openBackend(t)
	c := NewCapture(b, DefaultConfig())

	got := make(chan int, 16)
	c.SetCallback(func(samples []float32) {
		select {
		case got <- len(samples):
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case n := <-got:
		t.Logf("received %d samples", n)
	case <-time.After(2 * time.Second):
		t.Error("no samples within 2s")
	}
	cancel()
	time.Sleep(100 * time.Millisecond)
	if c.IsRunning() {
		t.Error("IsRunning() = true after context cancel")
	}
}
