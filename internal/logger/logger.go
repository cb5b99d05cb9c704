package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

// L 全局结构化日志实例
var L *zap.Logger

var (
	fallbackOnce sync.Once
	fallbackLog  *zap.Logger
)

// Init 初始化全局日志
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	if L == nil {
		L = fallbackLogger()
	}
	zap.ReplaceGlobals(L)
	return L
}

// New 创建日志实例
// debug 模式只输出到控制台；其余模式写滚动 JSON 文件，warn 及以上同时输出到 stderr。
func New(mode string, options Options) *zap.Logger {
	debug := strings.EqualFold(strings.TrimSpace(mode), "debug")
	level := zap.NewAtomicLevelAt(resolveLevel(debug, options.Level))
	encoderConfig := newEncoderConfig()

	if debug {
		return build(zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stdout), level))
	}

	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)
	sink, err := options.withDefaults().rotatingSink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file unavailable, writing to stdout: %v\n", err)
		return build(zapcore.NewCore(jsonEncoder, zapcore.Lock(os.Stdout), level))
	}
	alerts := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.WarnLevel && level.Enabled(l)
	})
	return build(zapcore.NewTee(
		zapcore.NewCore(jsonEncoder, sink, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), alerts),
	))
}

// StdLogger 返回兼容标准库 log 的 logger
func StdLogger() *log.Logger {
	return zap.NewStdLog(Z())
}

// Z 返回可用的结构化日志实例
func Z() *zap.Logger {
	if L != nil {
		return L
	}
	return fallbackLogger()
}

// S 返回可用的 SugaredLogger
func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// SW 返回带上下文字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return S()
	}
	return S().With(kv...)
}

// WithContext 把请求级日志挂到 context 上
func WithContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext 取出请求级日志，没有时返回全局日志
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok && l != nil {
			return l
		}
	}
	return S()
}

// Debugw 输出 debug 级别日志
func Debugw(message string, kv ...interface{}) {
	S().Debugw(message, kv...)
}

// Infow 输出 info 级别日志
func Infow(message string, kv ...interface{}) {
	S().Infow(message, kv...)
}

// Warnw 输出 warn 级别日志
func Warnw(message string, kv ...interface{}) {
	S().Warnw(message, kv...)
}

// Errorw 输出 error 级别日志
func Errorw(message string, kv ...interface{}) {
	S().Errorw(message, kv...)
}

func build(core zapcore.Core) *zap.Logger {
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func newEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return encoderConfig
}

func resolveLevel(debug bool, raw string) zapcore.Level {
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(trimmed))); err == nil {
			return level
		}
	}
	if debug {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

func fallbackLogger() *zap.Logger {
	fallbackOnce.Do(func() {
		fallbackLog = build(zapcore.NewCore(
			zapcore.NewConsoleEncoder(newEncoderConfig()),
			zapcore.Lock(os.Stdout),
			zap.NewAtomicLevelAt(zap.InfoLevel),
		))
	})
	return fallbackLog
}
