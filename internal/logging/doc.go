// Package logging wraps log/slog with followarr's handler setup and shared
// attribute helpers.
//
// Two output formats are supported: a compact console format for interactive
// use (colorized when stdout is a terminal) and JSON for log shippers. Every
// component receives its logger through NewComponentLogger so log lines carry
// a stable component attribute.
package logging
