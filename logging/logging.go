package logging

import (
	"fmt"
	"strconv"
	"strings"

	sdk "github.com/layotto/go-sdk"
	wapc "github.com/wapc/wapc-guest-tinygo"
)

const capabilityName = "logging"

// badKey labels a trailing field value that has no key.
const badKey = "!BADKEY"

// Level orders log entries by severity.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name, which is also the host function that receives the entry.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "Trace"
	case LevelDebug:
		return "Debug"
	case LevelInfo:
		return "Info"
	case LevelWarn:
		return "Warn"
	case LevelError:
		return "Error"
	}
	return "Level(" + strconv.Itoa(int(l)) + ")"
}

// Client sends leveled log entries to the host runtime. Fields are alternating
// keys and values appended to the message as key=value pairs.
type Client interface {
	Trace(message string, fields ...any)
	Debug(message string, fields ...any)
	Info(message string, fields ...any)
	Warn(message string, fields ...any)
	Error(message string, fields ...any)
}

// Config controls how a Client instance interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig sdk.RuntimeConfig

	// MinLevel drops entries below this level. The zero value keeps everything.
	MinLevel Level

	// HostCall overrides the waPC host function used for logging operations.
	HostCall func(string, string, string, []byte) ([]byte, error)
}

type client struct {
	runtime  sdk.RuntimeConfig
	minLevel Level
	hostCall func(string, string, string, []byte) ([]byte, error)
}

// New creates a Client that emits logs through the configured host capability.
func New(cfg Config) (Client, error) {
	runtimeCfg := cfg.SDKConfig
	if runtimeCfg.Namespace == "" {
		runtimeCfg.Namespace = sdk.DefaultNamespace
	}

	hostCall := cfg.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &client{
		runtime:  runtimeCfg,
		minLevel: cfg.MinLevel,
		hostCall: hostCall,
	}, nil
}

func (c *client) Trace(message string, fields ...any) { c.log(LevelTrace, message, fields) }
func (c *client) Debug(message string, fields ...any) { c.log(LevelDebug, message, fields) }
func (c *client) Info(message string, fields ...any)  { c.log(LevelInfo, message, fields) }
func (c *client) Warn(message string, fields ...any)  { c.log(LevelWarn, message, fields) }
func (c *client) Error(message string, fields ...any) { c.log(LevelError, message, fields) }

// log is best effort: a failing host call is not reported back to the caller.
func (c *client) log(level Level, message string, fields []any) {
	if level < c.minLevel {
		return
	}
	_, _ = c.hostCall(c.runtime.Namespace, capabilityName, level.String(), []byte(format(message, fields)))
}

// format renders message followed by its fields as key=value pairs.
func format(message string, fields []any) string {
	if len(fields) == 0 {
		return message
	}

	var sb strings.Builder
	sb.WriteString(message)
	for i := 0; i < len(fields); i += 2 {
		key, value := badKey, fields[i]
		if i+1 < len(fields) {
			key, value = fmt.Sprint(fields[i]), fields[i+1]
		}
		sb.WriteByte(' ')
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(quote(fmt.Sprint(value)))
	}
	return sb.String()
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

type nop struct{}

// Nop returns a Client that discards every entry.
func Nop() Client { return nop{} }

func (nop) Trace(string, ...any) {}
func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
