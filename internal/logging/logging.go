// Package logging builds the process logger: logr on top of zap.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger's level, encoding and destination.
type Options struct {
	Level  string    // debug, info, warn or error
	Format string    // json or console
	Output io.Writer // defaults to os.Stdout
}

// New returns a logr.Logger backed by zap. logr's V(1) maps to zap's debug
// level, so V(1) messages appear only at level "debug".
func New(opts Options) (logr.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(orDefault(opts.Level, "info")))
	if err != nil {
		return logr.Discard(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var encoder zapcore.Encoder
	switch orDefault(opts.Format, "json") {
	case "json":
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg := zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return logr.Discard(), fmt.Errorf("invalid log format %q", opts.Format)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	return zapr.NewLogger(zap.New(core)), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
