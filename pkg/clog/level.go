package clog

import "log/slog"

// Level is the severity picked for a finished request or an error code.
type Level int

const (
	LevelDebug Level = iota + 1
	LevelInfo
	LevelWarn
	LevelError
)

// Slog converts l to the matching slog level. Unknown values log as errors.
func (l Level) Slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// HTTPStatusToLevel treats client errors as warnings, except 499 which is
// the client going away.
func HTTPStatusToLevel(status int) Level {
	switch {
	case status == 499:
		return LevelInfo
	case status >= 500 || status < 100:
		return LevelError
	case status >= 400:
		return LevelWarn
	}
	return LevelInfo
}
