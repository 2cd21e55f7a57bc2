package slogutil

import (
	"io"
	"log/slog"
)

// Options configures the CLI logger.
type Options struct {
	// Level applies to the console stream.
	Level slog.Level
	// Format is "text" or "json".
	Format string

	// File, when set, receives a second stream at FileLevel.
	File       string
	FileLevel  slog.Level
	MaxSize    string
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the logger used by the CLI: console output on w, teed to an
// optional rotating log file. The returned closer releases the file.
func Setup(w io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	console := NewHandler(w, opts.Format, opts.Level, true)
	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(opts.File, ParseSize(opts.MaxSize), opts.MaxBackups)
	if err != nil {
		return nil, nil, err
	}
	file := NewHandler(rf, opts.Format, opts.FileLevel, false)
	return slog.New(NewTeeHandler(console, file)), rf, nil
}
