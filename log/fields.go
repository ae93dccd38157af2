package log

import "go.uber.org/zap"

// field constructors, so callers don't need to import zap
var (
	Skip     = zap.Skip
	Binary   = zap.Binary
	Bool     = zap.Bool
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Ints     = zap.Ints
	Int32    = zap.Int32
	Int64    = zap.Int64
	Uint32   = zap.Uint32
	Uint64   = zap.Uint64
	Float32  = zap.Float32
	Float64  = zap.Float64
	Float64s = zap.Float64s
	Any      = zap.Any
	Duration = zap.Duration
	Time     = zap.Time
)

func ErrorField(err error) Field {
	return zap.Error(err)
}
