package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// clogHandler 封装 slog.Handler，提供动态级别和 Flush 能力
type clogHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
	file     *os.File
}

func newHandler(config *Config, options *options) (*clogHandler, error) {
	h := &clogHandler{levelVar: new(slog.LevelVar)}

	var w io.Writer
	switch {
	case options.writer != nil:
		w = options.writer
	case strings.EqualFold(config.Output, "stdout"):
		w = os.Stdout
	case strings.EqualFold(config.Output, "stderr"):
		w = os.Stderr
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		h.file = f
		w = f
	}

	level, _ := ParseLevel(config.Level)
	h.levelVar.Set(level.slogLevel())

	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       h.levelVar,
		ReplaceAttr: replaceAttr(config.SourceRoot),
	}
	if strings.EqualFold(config.Format, "json") {
		h.Handler = slog.NewJSONHandler(w, opts)
	} else {
		h.Handler = slog.NewTextHandler(w, opts)
	}
	return h, nil
}

func (h *clogHandler) flush() {
	if h.file != nil {
		_ = h.file.Sync()
	}
}

// replaceAttr 统一级别名称、时间格式，并把 source 改写为 caller=file:line
func replaceAttr(sourceRoot string) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			if level, ok := a.Value.Any().(slog.Level); ok && level >= slogLevelFatal {
				a.Value = slog.StringValue("FATAL")
			}
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				file := source.File
				if sourceRoot != "" {
					if rel, err := filepath.Rel(sourceRoot, file); err == nil && !strings.HasPrefix(rel, "..") {
						file = rel
					}
				}
				return slog.String("caller", fmt.Sprintf("%s:%d", file, source.Line))
			}
		}
		return a
	}
}
