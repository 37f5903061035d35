package replica

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for replica events.
var (
	SignalTypeRegistered = capitan.NewSignal("replica.type.registered", "Type descriptor registered")
	SignalEncodeStart    = capitan.NewSignal("replica.encode.start", "Encode operation beginning")
	SignalEncodeComplete = capitan.NewSignal("replica.encode.complete", "Encode operation finished")
	SignalDecodeStart    = capitan.NewSignal("replica.decode.start", "Decode operation beginning")
	SignalDecodeComplete = capitan.NewSignal("replica.decode.complete", "Decode operation finished")
	SignalCloneStart     = capitan.NewSignal("replica.clone.start", "Clone operation beginning")
	SignalCloneComplete  = capitan.NewSignal("replica.clone.complete", "Clone operation finished")

	SignalFingerprintStart    = capitan.NewSignal("replica.fingerprint.start", "Fingerprint operation beginning")
	SignalFingerprintComplete = capitan.NewSignal("replica.fingerprint.complete", "Fingerprint operation finished")
)

// Keys for typed event data.
var (
	KeyTypeName   = capitan.NewStringKey("type_name")
	KeyTypeID     = capitan.NewIntKey("type_id")
	KeySize       = capitan.NewIntKey("size")
	KeyDuration   = capitan.NewDurationKey("duration")
	KeyMode       = capitan.NewStringKey("mode")
	KeyReferences = capitan.NewIntKey("references")
	KeyError      = capitan.NewErrorKey("error")
	KeyDigest     = capitan.NewStringKey("digest")
)

// Clone modes reported under KeyMode.
const (
	modeShallow = "shallow"
	modeDeep    = "deep"
)

func cloneMode(shallow bool) string {
	if shallow {
		return modeShallow
	}
	return modeDeep
}

// emitTypeRegistered emits an event when a type joins a registry.
func emitTypeRegistered(ctx context.Context, t *Type) {
	capitan.Emit(ctx, SignalTypeRegistered,
		KeyTypeName.Field(t.name),
		KeyTypeID.Field(int(t.id)),
	)
}

// emitEncodeStart emits an event when encode begins.
func emitEncodeStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalEncodeStart,
		KeyTypeName.Field(typeName),
	)
}

// emitEncodeComplete emits an event when encode finishes.
func emitEncodeComplete(ctx context.Context, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalEncodeComplete, fields...)
	}
}

// emitDecodeStart emits an event when decode begins.
func emitDecodeStart(ctx context.Context, size int) {
	capitan.Emit(ctx, SignalDecodeStart,
		KeySize.Field(size),
	)
}

// emitDecodeComplete emits an event when decode finishes.
// typeName is empty when the root type could not be resolved.
func emitDecodeComplete(ctx context.Context, typeName string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecodeComplete, fields...)
	}
}

// emitCloneStart emits an event when clone begins.
func emitCloneStart(ctx context.Context, typeName string, shallow bool) {
	capitan.Emit(ctx, SignalCloneStart,
		KeyTypeName.Field(typeName),
		KeyMode.Field(cloneMode(shallow)),
	)
}

// emitCloneComplete emits an event when clone finishes.
func emitCloneComplete(ctx context.Context, typeName string, shallow bool, references int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyMode.Field(cloneMode(shallow)),
		KeyReferences.Field(references),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalCloneComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalCloneComplete, fields...)
	}
}

// emitFingerprintStart emits an event when fingerprinting begins.
func emitFingerprintStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalFingerprintStart,
		KeyTypeName.Field(typeName),
	)
}

// emitFingerprintComplete emits an event when fingerprinting finishes.
// digest is empty on failure.
func emitFingerprintComplete(ctx context.Context, typeName, digest string, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDigest.Field(digest),
		KeySize.Field(size),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalFingerprintComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalFingerprintComplete, fields...)
	}
}
