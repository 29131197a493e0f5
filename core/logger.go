package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// ProductionLogger implements Logger on top of logrus.
type ProductionLogger struct {
	entry *logrus.Entry
	file  *os.File
}

// NewLogger builds a ProductionLogger from LoggingConfig.
// Output accepts "stdout", "stderr" or a file path.
func NewLogger(cfg LoggingConfig) (*ProductionLogger, error) {
	base := logrus.New()

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, ErrInvalidConfiguration)
	}
	base.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("unsupported log format %q: %w", cfg.Format, ErrInvalidConfiguration)
	}

	var file *os.File
	var writer io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		//nolint:gosec // path comes from configuration
		file, err = os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer = file
	}
	base.SetOutput(writer)

	entry := logrus.NewEntry(base)
	if cfg.Service != "" {
		entry = entry.WithField("service", cfg.Service)
	}

	return &ProductionLogger{entry: entry, file: file}, nil
}

// NewLoggerWithWriter is used by tests and tools that need to capture output.
func NewLoggerWithWriter(w io.Writer, level string) *ProductionLogger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		base.SetLevel(lvl)
	}
	return &ProductionLogger{entry: logrus.NewEntry(base)}
}

// WithComponent returns a child logger that tags every entry with component.
func (l *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{entry: l.entry.WithField("component", component), file: l.file}
}

// Close releases the log file when logging to a file.
func (l *ProductionLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Info(msg)
}

func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Error(msg)
}

func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Warn(msg)
}

func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Debug(msg)
}

func (l *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withTrace(ctx, fields).Info(msg)
}

func (l *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withTrace(ctx, fields).Error(msg)
}

func (l *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withTrace(ctx, fields).Warn(msg)
}

func (l *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.withTrace(ctx, fields).Debug(msg)
}

func (l *ProductionLogger) withTrace(ctx context.Context, fields map[string]interface{}) *logrus.Entry {
	e := l.entry.WithFields(fields)
	if ctx == nil {
		return e
	}
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		e = e.WithFields(logrus.Fields{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		})
	}
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.WithField("request_id", id)
	}
	return e
}
