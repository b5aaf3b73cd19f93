package mock

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/netharness/src/crypto"
	"github.com/mosaicnetworks/netharness/src/net"
	"github.com/sirupsen/logrus"
)

type server struct {
	trans       *net.NetworkTransport
	version     ProtocolVersion
	genesisHash []byte
	nodeID      []byte

	chainLock sync.RWMutex
	chain     []net.Block
	fragments []net.Fragment

	calls CallLog

	handlers sync.WaitGroup
	done     chan struct{}

	logger *logrus.Entry
}

func newServer(
	trans *net.NetworkTransport,
	version ProtocolVersion,
	genesisHash []byte,
	genesis net.Block,
	fragments []net.Fragment,
	logger *logrus.Entry,
) *server {
	return &server{
		trans:       trans,
		version:     version,
		genesisHash: genesisHash,
		nodeID:      crypto.SHA256([]byte(trans.LocalAddr())),
		chain:       []net.Block{genesis},
		fragments:   fragments,
		done:        make(chan struct{}),
		logger:      logger,
	}
}

func (s *server) start() {
	go s.trans.Listen()
	go s.loop()
}

// loop records every call before handing it to its own handler goroutine, so
// that a call answered to a client is always in the log.
func (s *server) loop() {
	defer close(s.done)
	consumer := s.trans.Consumer()
	shutdown := s.trans.ShutdownCh()
	for {
		select {
		case rpc := <-consumer:
			m, ok := methodOf(rpc.Command)
			if !ok {
				rpc.Respond(nil, fmt.Errorf("unexpected command %T", rpc.Command))
				continue
			}
			e := s.calls.Append(m)
			s.logger.WithFields(logrus.Fields{
				"method":  m,
				"ordinal": e.Ordinal,
			}).Debug("mock call")

			s.handlers.Add(1)
			go func() {
				defer s.handlers.Done()
				s.handle(rpc)
			}()
		case <-shutdown:
			return
		}
	}
}

// stop closes the transport and waits for in-flight handlers.
func (s *server) stop() {
	s.trans.Close()
	<-s.done
	s.handlers.Wait()
}

func methodOf(cmd interface{}) (MethodType, bool) {
	switch cmd.(type) {
	case *net.HandshakeRequest:
		return Handshake, true
	case *net.TipRequest:
		return Tip, true
	case *net.GetBlocksRequest:
		return GetBlocks, true
	case *net.GetHeadersRequest:
		return GetHeaders, true
	case *net.GetFragmentsRequest:
		return GetFragments, true
	case *net.PullBlocksRequest:
		return PullBlocks, true
	case *net.PullBlocksToTipRequest:
		return PullBlocksToTip, true
	case *net.PullHeadersRequest:
		return PullHeaders, true
	case *net.UploadBlocksRequest:
		return UploadBlocks, true
	case *net.PushHeadersRequest:
		return PushHeaders, true
	default:
		return 0, false
	}
}

func (s *server) handle(rpc net.RPC) {
	var resp interface{}
	var err error

	switch cmd := rpc.Command.(type) {
	case *net.HandshakeRequest:
		resp = &net.HandshakeResponse{
			Version: uint32(s.version),
			Block0:  s.genesisHash,
			NodeID:  s.nodeID,
		}
	case *net.TipRequest:
		resp = &net.TipResponse{Header: s.tip().Header}
	case *net.GetBlocksRequest:
		resp, err = s.getBlocks(cmd.IDs)
	case *net.GetHeadersRequest:
		var blocks net.BlockStream
		blocks, err = s.getBlocks(cmd.IDs)
		resp = headersOf(blocks)
	case *net.GetFragmentsRequest:
		resp, err = s.getFragments(cmd.IDs)
	case *net.PullBlocksRequest:
		resp, err = s.pull(cmd.From, cmd.To)
	case *net.PullBlocksToTipRequest:
		resp, err = s.pull(cmd.From, s.tip().Header.ID)
	case *net.PullHeadersRequest:
		var blocks net.BlockStream
		blocks, err = s.pull(cmd.From, cmd.To)
		resp = headersOf(blocks)
	case *net.UploadBlocksRequest:
		for _, b := range cmd.Blocks {
			if err = checkID("block", b.Header.ID); err != nil {
				break
			}
		}
		resp = &net.Ack{Received: len(cmd.Blocks)}
	case *net.PushHeadersRequest:
		for _, h := range cmd.Headers {
			if err = checkID("header", h.ID); err != nil {
				break
			}
		}
		resp = &net.Ack{Received: len(cmd.Headers)}
	}

	if err != nil {
		s.logger.WithField("error", err).Debug("rejecting call")
		resp = nil
	}
	rpc.Respond(resp, err)
}

func checkID(kind string, id []byte) error {
	if len(id) != net.HashSize {
		return net.InvalidRequest(fmt.Sprintf("invalid %s id: expected %d bytes, got %d", kind, net.HashSize, len(id)))
	}
	return nil
}

func checkIDs(kind string, ids [][]byte) error {
	for _, id := range ids {
		if err := checkID(kind, id); err != nil {
			return err
		}
	}
	return nil
}

func headersOf(blocks net.BlockStream) net.HeaderStream {
	res := make(net.HeaderStream, len(blocks))
	for i, b := range blocks {
		res[i] = b.Header
	}
	return res
}

func (s *server) setTip(b net.Block) {
	s.chainLock.Lock()
	defer s.chainLock.Unlock()
	s.chain = append(s.chain[:1], b)
}

func (s *server) tip() net.Block {
	s.chainLock.RLock()
	defer s.chainLock.RUnlock()
	return s.chain[len(s.chain)-1]
}

// indexOf returns the position of the block with the given id, or -1.
func (s *server) indexOf(id []byte) int {
	for i, b := range s.chain {
		if bytes.Equal(b.Header.ID, id) {
			return i
		}
	}
	return -1
}

func (s *server) getBlocks(ids [][]byte) (net.BlockStream, error) {
	if err := checkIDs("block", ids); err != nil {
		return nil, err
	}
	s.chainLock.RLock()
	defer s.chainLock.RUnlock()

	var res net.BlockStream
	for _, id := range ids {
		if i := s.indexOf(id); i >= 0 {
			res = append(res, s.chain[i])
		}
	}
	return res, nil
}

// pull returns the blocks after the latest known checkpoint, up to and
// including to. Unknown checkpoints are ignored; with none known the sequence
// starts at the genesis block.
func (s *server) pull(from [][]byte, to []byte) (net.BlockStream, error) {
	if err := checkIDs("checkpoint", from); err != nil {
		return nil, err
	}
	if err := checkID("block", to); err != nil {
		return nil, err
	}
	s.chainLock.RLock()
	defer s.chainLock.RUnlock()

	start := 0
	for _, id := range from {
		if i := s.indexOf(id); i+1 > start {
			start = i + 1
		}
	}
	end := s.indexOf(to)
	if end < start {
		return net.BlockStream{}, nil
	}

	res := make(net.BlockStream, end-start+1)
	copy(res, s.chain[start:end+1])
	return res, nil
}

func (s *server) getFragments(ids [][]byte) (net.FragmentStream, error) {
	if err := checkIDs("fragment", ids); err != nil {
		return nil, err
	}
	var res net.FragmentStream
	for _, id := range ids {
		for _, f := range s.fragments {
			if bytes.Equal(f.ID, id) {
				res = append(res, f)
			}
		}
	}
	return res, nil
}
