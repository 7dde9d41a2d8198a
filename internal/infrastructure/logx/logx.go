package logx

import (
	"context"
	"strings"

	"marketdata-ingest/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	level  zap.AtomicLevel
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	traceIDKey
	runIDKey
)

func init() {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Sampling = nil
	zapCfg.DisableStacktrace = true
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	appCfg := config.Load()
	if appCfg.LogLevel != "" {
		_ = zapCfg.Level.UnmarshalText([]byte(strings.ToLower(appCfg.LogLevel)))
	}
	level = zapCfg.Level

	var err error
	logger, err = zapCfg.Build(zap.AddCaller())
	if err != nil {
		panic(err)
	}
}

// L returns the package-level logger instance.
func L() *zap.Logger {
	return logger
}

// SetLevel changes the level of L at runtime. Unknown names are ignored.
func SetLevel(name string) {
	_ = level.UnmarshalText([]byte(strings.ToLower(name)))
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// WithFields enriches L with the request, trace and run ids found in ctx.
func WithFields(ctx context.Context) *zap.Logger {
	var fs []zap.Field
	if v := RequestID(ctx); v != "" {
		fs = append(fs, zap.String("request_id", v))
	}
	if v := TraceID(ctx); v != "" {
		fs = append(fs, zap.String("trace_id", v))
	}
	if v, _ := ctx.Value(runIDKey).(string); v != "" {
		fs = append(fs, zap.String("run_id", v))
	}
	if len(fs) == 0 {
		return logger
	}
	return logger.With(fs...)
}
