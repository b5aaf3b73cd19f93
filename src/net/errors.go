package net

import (
	"errors"
	"strings"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrClientClosed is returned by calls made on a closed Client.
	ErrClientClosed = errors.New("client closed")
)

const invalidRequestPrefix = "invalid request: "

// InvalidRequestError is returned by a peer that could not make sense of a
// request, for instance an id of the wrong size.
type InvalidRequestError struct {
	Message string
}

// InvalidRequest ...
func InvalidRequest(msg string) *InvalidRequestError {
	return &InvalidRequestError{Message: msg}
}

func (e *InvalidRequestError) Error() string {
	return invalidRequestPrefix + e.Message
}

// RemoteError is any other error returned by a peer.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote error: " + e.Message
}

// parseRemoteError rebuilds the error sent by a peer.
func parseRemoteError(s string) error {
	if strings.HasPrefix(s, invalidRequestPrefix) {
		return &InvalidRequestError{Message: strings.TrimPrefix(s, invalidRequestPrefix)}
	}
	return &RemoteError{Message: s}
}
