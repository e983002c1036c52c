package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// SessionID adds a session ID field.
func SessionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("session_id", id)
	}
}

// Task adds the current task field.
func Task(t string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("task", t)
	}
}

// Cursor adds the plan cursor field.
func Cursor(i int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("cursor", i)
	}
}

// Lap adds the completed lap count.
func Lap(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("lap", n)
	}
}

// SubState adds a handler sub-state field.
func SubState(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("substate", s)
	}
}

// Transition adds from/to fields for a sub-state transition.
func Transition(from, to string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from", from).Str("to", to)
	}
}

// Item adds an item id and count.
func Item(id, count int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("item", id).Int("count", count)
	}
}

// Site adds a site name field.
func Site(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("site", name)
	}
}

// Token adds a puzzle token field.
func Token(t string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("token", t)
	}
}

// Watchdog adds the watchdog kind that fired.
func Watchdog(kind string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("watchdog", kind)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Budget adds budget-related fields.
func Budget(name string, remaining int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("budget", name).Int("remaining", remaining)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Int adds an int field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}

// Bool adds a bool field with custom key.
func Bool(key string, value bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool(key, value)
	}
}
