// Package sinks holds keyboard.Sink consumers used by the keytap CLI:
// renderers that write one line per event and filters that wrap another
// sink.
package sinks
