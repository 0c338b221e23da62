package host

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/woxQAQ/wbg-host/internal/bridge"
	"github.com/woxQAQ/wbg-host/internal/jsval"
)

// ConsoleEntry is one message written by the guest.
type ConsoleEntry struct {
	Level   string
	Message string
	Time    time.Time
}

// Console keeps the most recent guest console messages and forwards them to
// the session logger.
type Console struct {
	mu      sync.Mutex
	entries []ConsoleEntry
	limit   int
	logger  *zap.Logger
}

// NewConsole creates a console retaining up to limit messages.
func NewConsole(logger *zap.Logger, limit int) *Console {
	if limit <= 0 {
		limit = 256
	}
	return &Console{limit: limit, logger: logger}
}

var consoleLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"log":   zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// Write records a message at level.
func (c *Console) Write(level, msg string) {
	if ce := c.logger.Check(consoleLevels[level], msg); ce != nil {
		ce.Write(zap.String("console", level))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, ConsoleEntry{Level: level, Message: msg, Time: time.Now()})
	if over := len(c.entries) - c.limit; over > 0 {
		c.entries = append(c.entries[:0], c.entries[over:]...)
	}
}

// Entries returns a copy of the retained messages, oldest first.
func (c *Console) Entries() []ConsoleEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ConsoleEntry(nil), c.entries...)
}

// consoleText renders a logged value: strings verbatim, anything else in
// the debug format.
func consoleText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return bridge.DebugString(v)
}

func consoleEntry(level string) *Entry {
	return entry("console."+level, "i>", func(c *Call) error {
		c.Env().console().Write(level, consoleText(c.Get(0)))
		return nil
	})
}

func (env *Env) console() *Console {
	if env.Console == nil {
		env.Console = NewConsole(env.logger(), 0)
	}
	return env.Console
}

func consoleEntries() []*Entry {
	return []*Entry{
		consoleEntry("debug"),
		consoleEntry("info"),
		consoleEntry("log"),
		consoleEntry("warn"),
		consoleEntry("error"),

		// Panic hook: the message is owned by the host once logged.
		entry("console.error#panic", "ii>", func(c *Call) error {
			ptr, n := c.U32(0), c.U32(1)
			msg, err := c.Str(0)
			if err != nil {
				return err
			}
			c.Env().console().Write("error", msg)
			if ptr == 0 {
				return nil
			}
			return c.Env().Bridge.Exports().Free(c.Context(), ptr, n, 1)
		}),
	}
}

func errorEntries() []*Entry {
	return []*Entry{
		entry("Error.new", ">i", func(c *Call) error {
			c.ReturnObject(jsval.NewError(""))
			return nil
		}),
		entry("Error.stack", "ii>", func(c *Call) error {
			v, err := property(c, 1, "stack")
			if err != nil {
				return err
			}
			return c.PutString(c.U32(0), jsval.ToString(v))
		}),
		entry("Error.message", "i>i", func(c *Call) error {
			v, err := property(c, 0, "message")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),
		entry("Error.name", "i>i", func(c *Call) error {
			v, err := property(c, 0, "name")
			if err != nil {
				return err
			}
			c.ReturnObject(v)
			return nil
		}),
		entry("Object.toString", "i>i", func(c *Call) error {
			c.ReturnObject(jsval.ToString(c.Get(0)))
			return nil
		}),
		typeTest("Error.instanceof_Error", func(v any) bool {
			_, ok := v.(*jsval.Error)
			return ok
		}),
	}
}
