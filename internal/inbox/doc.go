// Package inbox turns the flat log of directed messages a user sent or received
// into two-party conversation threads and keeps them consistent while messages
// arrive from a bulk load, periodic refresh, realtime push and local sends.
//
// Engine and Selection are plain single-threaded state machines. Reconciler owns
// one of each and serializes every mutation through a command channel; Session
// wires a Reconciler to a MessageSource, a poll timer and a push subscription.
package inbox
