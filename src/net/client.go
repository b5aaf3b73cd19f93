package net

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Client calls the wire protocol of one peer. Connections are pooled; at most
// maxPool idle connections are kept.
type Client struct {
	target  string
	timeout time.Duration
	maxPool int
	logger  *logrus.Entry

	pool     []*netConn
	poolLock sync.Mutex
	closed   bool
}

// NewClient creates a Client for the peer listening on target.
func NewClient(target string, maxPool int, timeout time.Duration, logger *logrus.Entry) *Client {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Client{
		target:  target,
		timeout: timeout,
		maxPool: maxPool,
		logger:  logger,
	}
}

// Target returns the address of the peer.
func (c *Client) Target() string {
	return c.target
}

// Close releases the pooled connections. Calls made afterwards fail with
// ErrClientClosed.
func (c *Client) Close() error {
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	for _, conn := range c.pool {
		conn.Release()
	}
	c.pool = nil
	c.closed = true
	return nil
}

func (c *Client) getConn() (*netConn, error) {
	c.poolLock.Lock()
	if c.closed {
		c.poolLock.Unlock()
		return nil, ErrClientClosed
	}
	if num := len(c.pool); num > 0 {
		var conn *netConn
		conn, c.pool[num-1] = c.pool[num-1], nil
		c.pool = c.pool[:num-1]
		c.poolLock.Unlock()
		return conn, nil
	}
	c.poolLock.Unlock()

	conn, err := net.DialTimeout("tcp", c.target, c.timeout)
	if err != nil {
		return nil, err
	}
	return newNetConn(c.target, conn), nil
}

func (c *Client) returnConn(conn *netConn) {
	c.poolLock.Lock()
	defer c.poolLock.Unlock()

	if !c.closed && len(c.pool) < c.maxPool {
		c.pool = append(c.pool, conn)
	} else {
		conn.Release()
	}
}

// call sends one request and hands the connection to read to decode the body
// of a successful response. The connection goes back to the pool only when the
// whole exchange went through.
func (c *Client) call(rpcType uint8, args interface{}, after func(*netConn) error, read func(*netConn) error) error {
	conn, err := c.getConn()
	if err != nil {
		return err
	}

	if c.timeout > 0 {
		conn.conn.SetDeadline(time.Now().Add(c.timeout))
	}

	if err := conn.w.WriteByte(rpcType); err != nil {
		conn.Release()
		return err
	}
	if err := conn.enc.Encode(args); err != nil {
		conn.Release()
		return err
	}
	if after != nil {
		if err := after(conn); err != nil {
			conn.Release()
			return err
		}
	}
	if err := conn.w.Flush(); err != nil {
		conn.Release()
		return err
	}

	var rpcError string
	if err := conn.dec.Decode(&rpcError); err != nil {
		conn.Release()
		return err
	}
	if rpcError != "" {
		c.returnConn(conn)
		return parseRemoteError(rpcError)
	}

	if err := read(conn); err != nil {
		conn.Release()
		return err
	}

	if c.timeout > 0 {
		conn.conn.SetDeadline(time.Time{})
	}
	c.returnConn(conn)
	return nil
}

func (c *Client) unary(rpcType uint8, args interface{}, resp interface{}) error {
	return c.call(rpcType, args, nil, func(conn *netConn) error {
		return conn.dec.Decode(resp)
	})
}

func (c *Client) stream(rpcType uint8, args interface{}, onFrame func(*StreamFrame) error) error {
	return c.call(rpcType, args, nil, func(conn *netConn) error {
		return decodeStream(conn.dec, onFrame)
	})
}

// Handshake opens a session with the peer.
func (c *Client) Handshake(nonce []byte) (*HandshakeResponse, error) {
	var resp HandshakeResponse
	if err := c.unary(rpcHandshake, &HandshakeRequest{Nonce: nonce}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tip returns the header of the peer's tip.
func (c *Client) Tip() (*Header, error) {
	var resp TipResponse
	if err := c.unary(rpcTip, &TipRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Header, nil
}

func blockCallback(fn func(*Block) error) func(*StreamFrame) error {
	return func(f *StreamFrame) error {
		if f.Block == nil {
			return nil
		}
		return fn(f.Block)
	}
}

func headerCallback(fn func(*Header) error) func(*StreamFrame) error {
	return func(f *StreamFrame) error {
		if f.Header == nil {
			return nil
		}
		return fn(f.Header)
	}
}

// PullBlocks streams the blocks from one of the checkpoints up to to.
func (c *Client) PullBlocks(from [][]byte, to []byte, fn func(*Block) error) error {
	return c.stream(rpcPullBlocks, &PullBlocksRequest{From: from, To: to}, blockCallback(fn))
}

// PullBlocksToTip streams the blocks from one of the checkpoints up to the
// peer's tip.
func (c *Client) PullBlocksToTip(from [][]byte, fn func(*Block) error) error {
	return c.stream(rpcPullBlocksToTip, &PullBlocksToTipRequest{From: from}, blockCallback(fn))
}

// PullHeaders streams the headers from one of the checkpoints up to to.
func (c *Client) PullHeaders(from [][]byte, to []byte, fn func(*Header) error) error {
	return c.stream(rpcPullHeaders, &PullHeadersRequest{From: from, To: to}, headerCallback(fn))
}

// GetHeaders streams the headers with the given ids.
func (c *Client) GetHeaders(ids [][]byte, fn func(*Header) error) error {
	return c.stream(rpcGetHeaders, &GetHeadersRequest{IDs: ids}, headerCallback(fn))
}

// GetBlocks streams the blocks with the given ids.
func (c *Client) GetBlocks(ids [][]byte, fn func(*Block) error) error {
	return c.stream(rpcGetBlocks, &GetBlocksRequest{IDs: ids}, blockCallback(fn))
}

// GetFragments streams the fragments with the given ids.
func (c *Client) GetFragments(ids [][]byte, fn func(*Fragment) error) error {
	return c.stream(rpcGetFragments, &GetFragmentsRequest{IDs: ids}, func(f *StreamFrame) error {
		if f.Fragment == nil {
			return nil
		}
		return fn(f.Fragment)
	})
}

// UploadBlocks pushes blocks to the peer.
func (c *Client) UploadBlocks(blocks []Block) (*Ack, error) {
	var ack Ack
	err := c.call(rpcUploadBlocks, &UploadBlocksRequest{},
		func(conn *netConn) error {
			return encodeStream(conn.enc, blockFrames(blocks))
		},
		func(conn *netConn) error {
			return conn.dec.Decode(&ack)
		})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// PushHeaders pushes headers to the peer.
func (c *Client) PushHeaders(headers []Header) (*Ack, error) {
	var ack Ack
	err := c.call(rpcPushHeaders, &PushHeadersRequest{},
		func(conn *netConn) error {
			return encodeStream(conn.enc, headerFrames(headers))
		},
		func(conn *netConn) error {
			return conn.dec.Decode(&ack)
		})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}
