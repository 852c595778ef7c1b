package statewire

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEmitProcessorCreated(_ *testing.T) {
	// Should not panic
	emitProcessorCreated(context.Background(), "application/json", "TestType")
}

func TestEmitMarshalStart(_ *testing.T) {
	emitMarshalStart(context.Background(), "application/json", "TestType")
}

func TestEmitMarshalComplete_Success(_ *testing.T) {
	emitMarshalComplete(context.Background(), "application/json", "TestType", 1024, 100*time.Millisecond, 3, nil)
}

func TestEmitMarshalComplete_Error(_ *testing.T) {
	emitMarshalComplete(context.Background(), "application/json", "TestType", 0, 100*time.Millisecond, 0, errors.New("test error"))
}

func TestEmitUnmarshalStart(_ *testing.T) {
	emitUnmarshalStart(context.Background(), "application/json", "TestType")
}

func TestEmitUnmarshalComplete_Success(_ *testing.T) {
	emitUnmarshalComplete(context.Background(), "application/json", "TestType", 512, 100*time.Millisecond, 2, nil)
}

func TestEmitUnmarshalComplete_Error(_ *testing.T) {
	emitUnmarshalComplete(context.Background(), "application/json", "TestType", 0, 100*time.Millisecond, 0, errors.New("test error"))
}

func TestSignalVariables(t *testing.T) {
	// Verify signals are properly initialized
	signals := []struct {
		name   string
		signal interface{}
	}{
		{"SignalProcessorCreated", SignalProcessorCreated},
		{"SignalMarshalStart", SignalMarshalStart},
		{"SignalMarshalComplete", SignalMarshalComplete},
		{"SignalUnmarshalStart", SignalUnmarshalStart},
		{"SignalUnmarshalComplete", SignalUnmarshalComplete},
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
		{"KeyContentType", KeyContentType},
		{"KeyTypeName", KeyTypeName},
		{"KeySize", KeySize},
		{"KeyDuration", KeyDuration},
		{"KeyError", KeyError},
		{"KeyStatefulCount", KeyStatefulCount},
	}

	for _, k := range keys {
		if k.key == nil {
			t.Errorf("%s is nil", k.name)
		}
	}
}
