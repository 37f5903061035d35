package replica

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitTypeRegistered(_ *testing.T) {
	// Should not panic
	emitTypeRegistered(context.Background(), &Type{id: 3, name: "Node"})
}

func TestEmitEncodeStart(_ *testing.T) {
	emitEncodeStart(context.Background(), "Node")
}

func TestEmitEncodeComplete_Success(_ *testing.T) {
	emitEncodeComplete(context.Background(), "Node", 128, 5*time.Millisecond, nil)
}

func TestEmitEncodeComplete_Error(_ *testing.T) {
	emitEncodeComplete(context.Background(), "Node", 0, 5*time.Millisecond, errors.New("test error"))
}

func TestEmitDecodeStart(_ *testing.T) {
	emitDecodeStart(context.Background(), 128)
}

func TestEmitDecodeComplete_Success(_ *testing.T) {
	emitDecodeComplete(context.Background(), "Node", 128, 5*time.Millisecond, nil)
}

func TestEmitDecodeComplete_Error(_ *testing.T) {
	emitDecodeComplete(context.Background(), "", 3, 5*time.Millisecond, ErrCorruptData)
}

func TestEmitCloneStart(_ *testing.T) {
	emitCloneStart(context.Background(), "Node", true)
	emitCloneStart(context.Background(), "Node", false)
}

func TestEmitCloneComplete_Success(_ *testing.T) {
	emitCloneComplete(context.Background(), "Node", true, 4, 5*time.Millisecond, nil)
}

func TestEmitCloneComplete_Error(_ *testing.T) {
	emitCloneComplete(context.Background(), "Node", false, 0, 5*time.Millisecond, errors.New("test error"))
}

func TestEmitFingerprintStart(_ *testing.T) {
	emitFingerprintStart(context.Background(), "Node")
}

func TestEmitFingerprintComplete_Success(_ *testing.T) {
	emitFingerprintComplete(context.Background(), "Node", "ab12", 64, 5*time.Millisecond, nil)
}

func TestEmitFingerprintComplete_Error(_ *testing.T) {
	emitFingerprintComplete(context.Background(), "Node", "", 0, 5*time.Millisecond, errors.New("test error"))
}

func TestCloneMode(t *testing.T) {
	if got := cloneMode(true); got != "shallow" {
		t.Errorf("cloneMode(true) = %q, want %q", got, "shallow")
	}
	if got := cloneMode(false); got != "deep" {
		t.Errorf("cloneMode(false) = %q, want %q", got, "deep")
	}
}

func TestSignalVariables(t *testing.T) {
	// Verify signals are properly initialized
	signals := []struct {
		name   string
		signal interface{}
	}{
		{"SignalTypeRegistered", SignalTypeRegistered},
		{"SignalEncodeStart", SignalEncodeStart},
		{"SignalEncodeComplete", SignalEncodeComplete},
		{"SignalDecodeStart", SignalDecodeStart},
		{"SignalDecodeComplete", SignalDecodeComplete},
		{"SignalCloneStart", SignalCloneStart},
		{"SignalCloneComplete", SignalCloneComplete},
		{"SignalFingerprintStart", SignalFingerprintStart},
		{"SignalFingerprintComplete", SignalFingerprintComplete},
	}

	for _, s := range signals {
		if s.signal == nil {
			t.Errorf("%s is nil", s.name)
		}
	}
}

func TestKeyVariables(t *testing.T) {
	// Verify keys are properly initialized
	keys := []struct {
		name string
		key  interface{}
	}{
		{"KeyTypeName", KeyTypeName},
		{"KeyTypeID", KeyTypeID},
		{"KeySize", KeySize},
		{"KeyDuration", KeyDuration},
		{"KeyMode", KeyMode},
		{"KeyReferences", KeyReferences},
		{"KeyError", KeyError},
		{"KeyDigest", KeyDigest},
	}

	for _, k := range keys {
		if k.key == nil {
			t.Errorf("%s is nil", k.name)
		}
	}
}
