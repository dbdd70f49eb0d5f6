// Package services defines the shared error taxonomy used across followarr's
// components.
//
// Sentinel markers distinguish user input misses (unknown show), transient
// upstream failures (catalog or chat platform unreachable), and persistence
// faults so callers can decide whether to report to the user, drop the event,
// or alert the operator. The Wrap helper tags errors with a marker while
// keeping component and operation context in the message.
package services
