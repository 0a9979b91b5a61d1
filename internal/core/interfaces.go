// Package core holds the transport-facing contracts shared by the signaling
// core and its adapters.
package core

// Frame is a marshaled signaling event, ready to be written to a channel.
type Frame []byte

// SignalConnection abstracts a participant's messaging transport.
// The adapter that created it must Close() it; everything else only sends.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
