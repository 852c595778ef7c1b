package statewire

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for processor events.
var (
	SignalProcessorCreated  = capitan.NewSignal("statewire.processor.created", "Processor instantiated")
	SignalMarshalStart      = capitan.NewSignal("statewire.marshal.start", "Marshal operation beginning")
	SignalMarshalComplete   = capitan.NewSignal("statewire.marshal.complete", "Marshal operation finished")
	SignalUnmarshalStart    = capitan.NewSignal("statewire.unmarshal.start", "Unmarshal operation beginning")
	SignalUnmarshalComplete = capitan.NewSignal("statewire.unmarshal.complete", "Unmarshal operation finished")
)

// Keys for typed event data.
var (
	KeyContentType   = capitan.NewStringKey("content_type")
	KeyTypeName      = capitan.NewStringKey("type_name")
	KeySize          = capitan.NewIntKey("size")
	KeyDuration      = capitan.NewDurationKey("duration")
	KeyError         = capitan.NewErrorKey("error")
	KeyStatefulCount = capitan.NewIntKey("stateful_count")
)

// emitProcessorCreated emits an event when a processor is created.
func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitMarshalStart emits an event when marshal begins.
func emitMarshalStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalMarshalStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitMarshalComplete emits an event when marshal finishes.
func emitMarshalComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, stateful int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyStatefulCount.Field(stateful),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalMarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalMarshalComplete, fields...)
	}
}

// emitUnmarshalStart emits an event when unmarshal begins.
func emitUnmarshalStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalUnmarshalStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitUnmarshalComplete emits an event when unmarshal finishes.
func emitUnmarshalComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, stateful int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyStatefulCount.Field(stateful),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalUnmarshalComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalUnmarshalComplete, fields...)
	}
}
