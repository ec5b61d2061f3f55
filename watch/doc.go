// Package watch implements a single-slot latest-value channel.
//
// A Channel wraps one value of type T. Writers mutate the value in place via
// Modify and decide whether subscribers should be notified. Subscribers hold
// a Receiver and block on Changed until a notification arrives; rapid
// successive updates coalesce, so a receiver always observes the most recent
// state but may observe several updates as one.
//
// The wire package uses a Channel to broadcast the committed routing table of
// a served value to any number of observers.
package watch
