package mock

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/netharness/src/crypto"
	"github.com/mosaicnetworks/netharness/src/net"
	"github.com/sirupsen/logrus"
)

// Builder configures a mock peer.
type Builder struct {
	port        int
	genesis     *net.Block
	genesisHash []byte
	version     ProtocolVersion
	tip         *net.Block
	fragments   []net.Fragment
	timeout     time.Duration
	logger      *logrus.Entry
}

// NewBuilder returns a Builder listening on a random port and advertising
// GenesisPraos.
func NewBuilder() *Builder {
	return &Builder{
		version: GenesisPraos,
		timeout: time.Second,
	}
}

// WithPort sets the listen port. Zero picks a free port.
func (b *Builder) WithPort(port int) *Builder {
	b.port = port
	return b
}

// WithGenesisBlock sets the block0 served by the mock. Its id is the genesis
// hash advertised in the handshake unless WithGenesisHash overrides it.
func (b *Builder) WithGenesisBlock(block net.Block) *Builder {
	b.genesis = &block
	return b
}

// WithGenesisHash overrides the genesis hash advertised in the handshake.
func (b *Builder) WithGenesisHash(hash []byte) *Builder {
	b.genesisHash = hash
	return b
}

// WithProtocolVersion sets the version advertised in the handshake.
func (b *Builder) WithProtocolVersion(v ProtocolVersion) *Builder {
	b.version = v
	return b
}

// WithTipBlock appends a block on top of the genesis block.
func (b *Builder) WithTipBlock(block net.Block) *Builder {
	b.tip = &block
	return b
}

// WithFragments sets the fragments answered by GetFragments.
func (b *Builder) WithFragments(fragments ...net.Fragment) *Builder {
	b.fragments = append(b.fragments, fragments...)
	return b
}

// WithTimeout sets the write timeout of the transport.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeout = timeout
	return b
}

// WithLogger ...
func (b *Builder) WithLogger(logger *logrus.Entry) *Builder {
	b.logger = logger
	return b
}

// DefaultGenesisBlock is the block0 served when none is configured.
func DefaultGenesisBlock() net.Block {
	return net.Block{
		Header: net.Header{
			ID:      crypto.SHA256([]byte("block0")),
			Parent:  make([]byte, net.HashSize),
			Height:  0,
			Version: 0,
		},
	}
}

// Build starts the mock and returns its controller.
func (b *Builder) Build() (*Controller, error) {
	logger := b.logger
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.InfoLevel
		logger = log.WithField("prefix", "mock")
	}

	genesis := DefaultGenesisBlock()
	if b.genesis != nil {
		genesis = *b.genesis
	}
	if len(genesis.Header.ID) != net.HashSize {
		return nil, fmt.Errorf("genesis block id must be %d bytes, got %d", net.HashSize, len(genesis.Header.ID))
	}

	genesisHash := genesis.Header.ID
	if b.genesisHash != nil {
		genesisHash = b.genesisHash
	}

	trans, err := net.NewTCPTransport(fmt.Sprintf("127.0.0.1:%d", b.port), "", b.timeout, logger.WithField("component", "transport"))
	if err != nil {
		return nil, err
	}

	s := newServer(trans, b.version, genesisHash, genesis, b.fragments, logger)
	if b.tip != nil {
		s.setTip(*b.tip)
	}
	s.start()

	logger.WithFields(logrus.Fields{
		"addr":    trans.LocalAddr(),
		"version": b.version,
		"block0":  fmt.Sprintf("%x", genesisHash),
	}).Info("mock peer listening")

	return &Controller{server: s}, nil
}
