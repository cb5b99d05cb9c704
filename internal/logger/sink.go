package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogDirName    = "logs"
	defaultLogFilename   = "sarvcast.log"
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 7
	defaultLogMaxAgeDays = 30
)

// Options 日志输出配置
type Options struct {
	Level      string // 为空时 debug 模式取 debug，其余取 info
	Dir        string // 为空时使用工作目录下的 logs
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (o Options) withDefaults() Options {
	o.Dir = strings.TrimSpace(o.Dir)
	o.Filename = strings.TrimSpace(o.Filename)
	if o.Filename == "" {
		o.Filename = defaultLogFilename
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = defaultLogMaxSizeMB
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = defaultLogMaxBackups
	}
	if o.MaxAgeDays <= 0 {
		o.MaxAgeDays = defaultLogMaxAgeDays
	}
	return o
}

// path 返回日志文件路径并确保目录可写
func (o Options) path() (string, error) {
	dir := o.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve workdir: %w", err)
		}
		dir = filepath.Join(wd, defaultLogDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	full := filepath.Join(dir, o.Filename)
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	return full, f.Close()
}

func (o Options) rotatingSink() (zapcore.WriteSyncer, error) {
	full, err := o.path()
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   full,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}), nil
}
