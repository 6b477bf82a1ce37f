// Package logger holds the process-wide zerolog logger. Binaries call Init
// once at startup; services and adapters receive a Component logger through
// their constructors instead of reaching for the global.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	Level   string    // trace, debug, info, warn or error; empty means info
	Pretty  bool      // console output for local runs, JSON otherwise
	Output  io.Writer // defaults to os.Stdout
	Service string    // stamped as "service" on every line when set
}

var (
	initMu sync.Mutex
	root   atomic.Pointer[zerolog.Logger]
)

// Init builds the root logger from opts. Only the first call builds anything;
// later calls return the existing logger. An unknown level falls back to info,
// config validation rejects it before Init is reached.
func Init(opts Options) zerolog.Logger {
	initMu.Lock()
	defer initMu.Unlock()

	if l := root.Load(); l != nil {
		return *l
	}

	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(lvl)

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	fields := zerolog.New(out).Level(lvl).With().Timestamp().Caller()
	if opts.Service != "" {
		fields = fields.Str("service", opts.Service)
	}
	l := fields.Logger()
	root.Store(&l)
	return l
}

// Get returns the root logger. It panics before Init.
func Get() zerolog.Logger {
	l := root.Load()
	if l == nil {
		panic("logger: Get called before Init")
	}
	return *l
}

// Component returns the root logger tagged with a "component" field.
func Component(name string) zerolog.Logger {
	return Get().With().Str("component", name).Logger()
}

// Reset drops the root logger so the next Init builds a new one. Tests only.
func Reset() {
	initMu.Lock()
	defer initMu.Unlock()
	root.Store(nil)
}

// ParseLevel accepts zerolog level names and "warning". Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("logger: unknown level %q", s)
	}
	return lvl, nil
}
