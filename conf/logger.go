package conf

import "context"

// ILogger the internal logger, backed by glog by default or by slog with build tag `slog`.
type ILogger interface {
	Info(v ...any)
	Infof(format string, v ...any)

	Warn(v ...any)
	Warnf(format string, v ...any)

	Error(v ...any)
	Errorf(format string, v ...any)

	InfoContext(ctx context.Context, v ...any)
	WarnContext(ctx context.Context, v ...any)
	ErrorContext(ctx context.Context, v ...any)
}

var i ILogger

func Internal() ILogger {
	if i == nil {
		checkLogger()
	}
	return i
}
