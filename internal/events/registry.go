package events

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownEvent is returned by Emit for names outside the registry.
var ErrUnknownEvent = errors.New("unknown event")

// event names by domain; the name is "<domain>.<kind>"
var registry = map[string][]string{
	"load":   {"started", "completed", "failed", "error", "log"},
	"scene":  {"transform", "camera", "light", "mesh"},
	"system": {"startup", "shutdown", "error", "log"},
}

var known = func() map[string]bool {
	m := map[string]bool{}
	for domain, kinds := range registry {
		for _, k := range kinds {
			m[domain+"."+k] = true
		}
	}
	return m
}()

// Validate reports whether name may be emitted.
func Validate(name string) error {
	if !known[name] {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	return nil
}

// Names returns every registered event name, sorted.
func Names() []string {
	out := make([]string, 0, len(known))
	for n := range known {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
