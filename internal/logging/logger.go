package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	filePrefix = "storewatch"
	dayLayout  = "2006-01-02"
	maxAgeDays = 14
)

// dailyWriter writes to logs/storewatch-YYYY-MM-DD.log, opening a new file
// when the UTC date changes. Each day file is size-rotated by lumberjack.
type dailyWriter struct {
	dir   string
	clock clock.Clock

	mu   sync.Mutex
	day  string
	file *lumberjack.Logger
}

func newDailyWriter(dir string, clk clock.Clock) *dailyWriter {
	return &dailyWriter{dir: dir, clock: clk}
}

func (d *dailyWriter) filename(day string) string {
	return filepath.Join(d.dir, fmt.Sprintf("%s-%s.log", filePrefix, day))
}

func (d *dailyWriter) Write(p []byte) (int, error) {
	day := d.clock.Now().UTC().Format(dayLayout)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.file == nil || day != d.day {
		if d.file != nil {
			_ = d.file.Close()
		}
		d.day = day
		d.file = &lumberjack.Logger{
			Filename:   d.filename(day),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		d.sweep(day)
	}
	return d.file.Write(p)
}

// sweep removes day files (and their lumberjack backups) dated more than
// maxAgeDays before today. lumberjack only prunes backups of the current name.
func (d *dailyWriter) sweep(today string) {
	now, err := time.Parse(dayLayout, today)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -maxAgeDays)

	matches, _ := filepath.Glob(filepath.Join(d.dir, filePrefix+"-*.log*"))
	for _, path := range matches {
		name := strings.TrimPrefix(filepath.Base(path), filePrefix+"-")
		if len(name) < len(dayLayout) {
			continue
		}
		day, err := time.Parse(dayLayout, name[:len(dayLayout)])
		if err != nil || !day.Before(cutoff) {
			continue
		}
		_ = os.Remove(path)
	}
}

func (d *dailyWriter) Sync() error { return nil }

func (d *dailyWriter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// NewLogger logs JSON to a dated file under logDir and mirrors every entry
// to stdout in console format.
func NewLogger(logDir string) (*zap.Logger, error) {
	return newLogger(logDir, clock.New(), zapcore.Lock(os.Stdout))
}

func newLogger(logDir string, clk clock.Clock, console zapcore.WriteSyncer) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := cfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(cfg), newDailyWriter(logDir, clk), zap.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, zap.InfoLevel),
	)
	return zap.New(core), nil
}

// Sync flushes the logger, ignoring the EINVAL/ENOTTY errors stdout
// returns on some terminals.
func Sync(l *zap.Logger) error {
	var err error
	for _, e := range multierr.Errors(l.Sync()) {
		if !isIgnorableSyncErr(e) {
			err = multierr.Append(err, e)
		}
	}
	return err
}

func isIgnorableSyncErr(err error) bool {
	pe, ok := err.(*os.PathError)
	if !ok {
		return false
	}
	return pe.Path == "/dev/stdout" || pe.Path == "/dev/stderr"
}
