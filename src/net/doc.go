// Package net implements the node-to-node wire protocol spoken by the harness.
//
// The protocol is a set of RPCs: Handshake, Tip, GetBlocks, GetHeaders,
// GetFragments, PullBlocks, PullBlocksToTip, PullHeaders, UploadBlocks and
// PushHeaders. NetworkTransport serves them over a StreamLayer, usually plain
// TCP, and hands every decoded request to the application through the channel
// returned by Consumer. Client calls them on a remote peer.
//
// Framing
//
// Each request is framed by a byte that indicates the RPC type, followed by
// the msgpack encoded request. The response is an error string, followed, when
// the error is empty, by either the msgpack encoded response or, for RPCs that
// return a sequence, a series of StreamFrames terminated by a frame with More
// set to false. RPCs that upload a sequence (UploadBlocks, PushHeaders) send
// their items as StreamFrames after the request, and get a single Ack back.
package net
