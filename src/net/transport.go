package net

// Transport provides an interface for network transports to serve the wire
// protocol.
type Transport interface {

	// Starts the transport listening
	Listen()

	// Consumer returns a channel that can be used to
	// consume and respond to RPC requests.
	Consumer() <-chan RPC

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}
