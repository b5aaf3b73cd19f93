package net

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

/*
NetworkTransport serves the wire protocol on top of a stream layer, which can
be simple TCP, TLS, etc.

Each inbound connection is handled by its own goroutine. Decoded requests are
handed to the consumer one RPC at a time per connection; the consumer may
answer them concurrently.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	consumeCh chan RPC

	conns     map[net.Conn]struct{}
	connsLock sync.Mutex

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	stream StreamLayer

	timeout time.Duration
}

// NewNetworkTransport creates a new network transport with the given stream
// layer. The timeout is used to apply write deadlines on responses.
func NewNetworkTransport(
	stream StreamLayer,
	timeout time.Duration,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	trans := &NetworkTransport{
		consumeCh:  make(chan RPC),
		conns:      make(map[net.Conn]struct{}),
		logger:     logger,
		shutdownCh: make(chan struct{}),
		stream:     stream,
		timeout:    timeout,
	}

	return trans
}

// Close is used to stop the network transport. It stops accepting connections
// and closes the open ones.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()

		n.connsLock.Lock()
		for c := range n.conns {
			c.Close()
		}
		n.connsLock.Unlock()

		n.shutdown = true
	}
	return nil
}

// Consumer implements the Transport interface.
func (n *NetworkTransport) Consumer() <-chan RPC {
	return n.consumeCh
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownCh is closed when the transport is closed.
func (n *NetworkTransport) ShutdownCh() <-chan struct{} {
	return n.shutdownCh
}

// Listen opens the stream and handles incoming connections.
func (n *NetworkTransport) Listen() {
	for {
		// Accept incoming connections
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		if !n.track(conn) {
			conn.Close()
			return
		}

		// Handle the connection in dedicated routine
		go n.handleConn(conn)
	}
}

// track registers an open connection, unless the transport is shut down.
func (n *NetworkTransport) track(conn net.Conn) bool {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()
	if n.shutdown {
		return false
	}
	n.connsLock.Lock()
	n.conns[conn] = struct{}{}
	n.connsLock.Unlock()
	return true
}

func (n *NetworkTransport) untrack(conn net.Conn) {
	n.connsLock.Lock()
	delete(n.conns, conn)
	n.connsLock.Unlock()
}

// handleConn is used to handle an inbound connection for its lifespan.
func (n *NetworkTransport) handleConn(conn net.Conn) {
	defer n.untrack(conn)
	defer conn.Close()

	r := bufio.NewReaderSize(conn, bufSize)
	w := bufio.NewWriterSize(conn, bufSize)
	dec := codec.NewDecoder(r, msgpackHandle)
	enc := codec.NewEncoder(w, msgpackHandle)

	for {
		if err := n.handleCommand(r, dec, enc, conn); err != nil {
			if err == ErrTransportShutdown || n.IsShutdown() {
				n.logger.WithField("error", err).Debug("Connection closed by shutdown")
			} else if err != io.EOF {
				n.logger.WithField("error", err).Error("Failed to decode incoming command")
			}
			return
		}
		if err := w.Flush(); err != nil {
			n.logger.WithField("error", err).Error("Failed to flush response")
			return
		}
	}
}

// handleCommand is used to decode and dispatch a single command.
func (n *NetworkTransport) handleCommand(r *bufio.Reader, dec *codec.Decoder, enc *codec.Encoder, conn net.Conn) error {
	// Get the rpc type
	rpcType, err := r.ReadByte()
	if err != nil {
		return err
	}

	// Create the RPC object
	respCh := make(chan RPCResponse, 1)
	rpc := RPC{
		RespChan: respCh,
	}

	// Decode the command
	switch rpcType {
	case rpcHandshake:
		var req HandshakeRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcTip:
		var req TipRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcGetBlocks:
		var req GetBlocksRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcGetHeaders:
		var req GetHeadersRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcGetFragments:
		var req GetFragmentsRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcPullBlocks:
		var req PullBlocksRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcPullBlocksToTip:
		var req PullBlocksToTipRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcPullHeaders:
		var req PullHeadersRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		rpc.Command = &req
	case rpcUploadBlocks:
		var req UploadBlocksRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		err := decodeStream(dec, func(f *StreamFrame) error {
			if f.Block == nil {
				return fmt.Errorf("upload frame without block")
			}
			req.Blocks = append(req.Blocks, *f.Block)
			return nil
		})
		if err != nil {
			return err
		}
		rpc.Command = &req
	case rpcPushHeaders:
		var req PushHeadersRequest
		if err := dec.Decode(&req); err != nil {
			return err
		}
		err := decodeStream(dec, func(f *StreamFrame) error {
			if f.Header == nil {
				return fmt.Errorf("push frame without header")
			}
			req.Headers = append(req.Headers, *f.Header)
			return nil
		})
		if err != nil {
			return err
		}
		rpc.Command = &req
	default:
		return fmt.Errorf("unknown rpc type %d", rpcType)
	}

	// Dispatch the RPC
	select {
	case n.consumeCh <- rpc:
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}

	// Wait for response
	select {
	case resp := <-respCh:
		if n.timeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(n.timeout))
		}
		return encodeResponse(enc, resp)
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}
}

// encodeResponse sends the error first, then the response or its frames.
func encodeResponse(enc *codec.Encoder, resp RPCResponse) error {
	respErr := ""
	if resp.Error != nil {
		respErr = resp.Error.Error()
	}
	if err := enc.Encode(respErr); err != nil {
		return err
	}
	if respErr != "" {
		return nil
	}

	switch r := resp.Response.(type) {
	case BlockStream:
		return encodeStream(enc, blockFrames(r))
	case HeaderStream:
		return encodeStream(enc, headerFrames(r))
	case FragmentStream:
		return encodeStream(enc, fragmentFrames(r))
	default:
		return enc.Encode(r)
	}
}
