//go:build slog && !glog

package conf

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ZenLiuCN/fn"
)

var (
	handler *RotateFileHandler
)

// RotateFileHandler writes to stdout and a file, the file is renamed with a time pattern once it grows over limit.
type RotateFileHandler struct {
	path    string
	pattern string
	file    *os.File
	limit   int64
	lock    sync.Mutex
}

func (s *RotateFileHandler) Write(p []byte) (n int, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, _ = os.Stdout.Write(p)
	n, err = s.file.Write(p)
	if err == nil {
		if si, er := s.file.Stat(); er == nil && si.Size() > s.limit {
			_ = s.file.Close()
			_ = os.Rename(s.path, strings.ReplaceAll(s.path, ".log", "."+time.Now().Format(s.pattern)+".log"))
			s.file, err = os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
		}
	}
	return
}

func (s *RotateFileHandler) Close() error {
	return s.file.Close()
}

func checkLogger() {
	if handler != nil {
		_ = handler.Close()
		handler = nil
	}
	c := GetConfig()
	opt := new(slog.HandlerOptions)
	opt.AddSource = c.GetBoolean("log.source", true)
	level := new(slog.Level)
	if err := level.UnmarshalText([]byte(c.GetString("log.level", "info"))); err == nil {
		opt.Level = level
	} else {
		opt.Level = slog.LevelInfo
	}
	logFile := c.GetString("log.file", "")
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, opt)))
	} else {
		fn.Panic(os.MkdirAll(filepath.Dir(logFile), os.ModePerm))
		handler = &RotateFileHandler{
			path:    logFile,
			pattern: c.GetString("log.pattern", "060102150405"),
			file:    fn.Panic1(os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)),
			limit:   c.GetByteSizeOr("log.size", big.NewInt(1024*1024*10)).Int64(),
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(handler, opt)))
	}
	i = adaptor{}
}

type adaptor struct {
}

// split treats a leading string as the message and the rest as attributes.
func split(v []any) (string, []any) {
	if len(v) > 0 {
		if f, ok := v[0].(string); ok {
			return f, v[1:]
		}
	}
	return "", v
}

func (a adaptor) Info(v ...any) {
	m, args := split(v)
	slog.Info(m, args...)
}

func (a adaptor) Infof(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

func (a adaptor) Warn(v ...any) {
	m, args := split(v)
	slog.Warn(m, args...)
}

func (a adaptor) Warnf(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

func (a adaptor) Error(v ...any) {
	m, args := split(v)
	slog.Error(m, args...)
}

func (a adaptor) Errorf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

func (a adaptor) InfoContext(ctx context.Context, v ...any) {
	m, args := split(v)
	slog.InfoContext(ctx, m, args...)
}

func (a adaptor) WarnContext(ctx context.Context, v ...any) {
	m, args := split(v)
	slog.WarnContext(ctx, m, args...)
}

func (a adaptor) ErrorContext(ctx context.Context, v ...any) {
	m, args := split(v)
	slog.ErrorContext(ctx, m, args...)
}
