package dynbus

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals emitted by the transcoder. Subscribe to them with capitan to
// observe encoding and decoding.
var (
	SignalEncodeComplete = capitan.NewSignal("dynbus.encode.complete", "Encode operation finished")
	SignalDecodeComplete = capitan.NewSignal("dynbus.decode.complete", "Decode operation finished")
	SignalDecodeSkipped  = capitan.NewSignal("dynbus.decode.skipped", "Value of unknown wire type skipped")
)

// Event field keys.
var (
	KeySignature = capitan.NewStringKey("signature")
	KeySize      = capitan.NewIntKey("size")
	KeyCount     = capitan.NewIntKey("count")
	KeyWireType  = capitan.NewIntKey("wire_type")
	KeyPath      = capitan.NewStringKey("path")
	KeyDuration  = capitan.NewDurationKey("duration")
	KeyError     = capitan.NewErrorKey("error")
)

func emitEncodeComplete(ctx context.Context, sig Signature, size int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeySignature.Field(string(sig)),
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

func emitDecodeComplete(ctx context.Context, sig Signature, count int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeySignature.Field(string(sig)),
		KeyCount.Field(count),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecodeComplete, fields...)
	}
}

func emitDecodeSkipped(ctx context.Context, t WireType, path string) {
	capitan.Emit(ctx, SignalDecodeSkipped,
		KeyWireType.Field(int(t)),
		KeyPath.Field(path),
	)
}
