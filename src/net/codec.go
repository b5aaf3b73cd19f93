package net

import (
	"bufio"
	"math"
	"net"

	"github.com/ugorji/go/codec"
)

const (
	rpcHandshake uint8 = iota
	rpcTip
	rpcGetBlocks
	rpcGetHeaders
	rpcGetFragments
	rpcPullBlocks
	rpcPullBlocksToTip
	rpcPullHeaders
	rpcUploadBlocks
	rpcPushHeaders
)

const (
	bufSize = math.MaxUint16
)

func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	return h
}

// msgpackHandle is safe for concurrent use once configured.
var msgpackHandle = newMsgpackHandle()

type netConn struct {
	target string
	conn   net.Conn
	r      *bufio.Reader
	w      *bufio.Writer
	dec    *codec.Decoder
	enc    *codec.Encoder
}

func newNetConn(target string, conn net.Conn) *netConn {
	c := &netConn{
		target: target,
		conn:   conn,
		r:      bufio.NewReaderSize(conn, bufSize),
		w:      bufio.NewWriterSize(conn, bufSize),
	}
	c.dec = codec.NewDecoder(c.r, msgpackHandle)
	c.enc = codec.NewEncoder(c.w, msgpackHandle)
	return c
}

// Release closes the underlying connection
func (n *netConn) Release() error {
	return n.conn.Close()
}

// encodeStream writes items as StreamFrames followed by the closing frame.
func encodeStream(enc *codec.Encoder, frames []StreamFrame) error {
	for i := range frames {
		frames[i].More = true
		if err := enc.Encode(&frames[i]); err != nil {
			return err
		}
	}
	return enc.Encode(&StreamFrame{More: false})
}

// decodeStream reads StreamFrames until the closing one.
func decodeStream(dec *codec.Decoder, onFrame func(*StreamFrame) error) error {
	for {
		var f StreamFrame
		if err := dec.Decode(&f); err != nil {
			return err
		}
		if !f.More {
			return nil
		}
		if err := onFrame(&f); err != nil {
			return err
		}
	}
}

func blockFrames(blocks []Block) []StreamFrame {
	frames := make([]StreamFrame, len(blocks))
	for i := range blocks {
		frames[i].Block = &blocks[i]
	}
	return frames
}

func headerFrames(headers []Header) []StreamFrame {
	frames := make([]StreamFrame, len(headers))
	for i := range headers {
		frames[i].Header = &headers[i]
	}
	return frames
}

func fragmentFrames(fragments []Fragment) []StreamFrame {
	frames := make([]StreamFrame, len(fragments))
	for i := range fragments {
		frames[i].Fragment = &fragments[i]
	}
	return frames
}
