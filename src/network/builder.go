package network

import (
	"fmt"

	"github.com/mosaicnetworks/netharness/src/config"
	"github.com/mosaicnetworks/netharness/src/fragment"
	"github.com/mosaicnetworks/netharness/src/journal"
	"github.com/mosaicnetworks/netharness/src/node"
	"github.com/mosaicnetworks/netharness/src/topology"
	"github.com/mosaicnetworks/netharness/src/wallet"
)

// Builder collects the description of a network.
type Builder struct {
	conf         *config.Config
	descriptors  []topology.NodeDescriptor
	wallets      []*wallet.Wallet
	genesisBlock string
	genesisHash  string
	binaryArgs   []string
	env          []string
	nodeEnv      map[string][]string
	secrets      map[string]string
}

// NewBuilder ...
func NewBuilder(conf *config.Config) *Builder {
	return &Builder{
		conf:    conf,
		nodeEnv: make(map[string][]string),
		secrets: make(map[string]string),
	}
}

// WithNodes adds nodes to the topology.
func (b *Builder) WithNodes(descriptors ...topology.NodeDescriptor) *Builder {
	b.descriptors = append(b.descriptors, descriptors...)
	return b
}

// WithWallet registers a wallet, looked up by its alias.
func (b *Builder) WithWallet(w *wallet.Wallet) *Builder {
	b.wallets = append(b.wallets, w)
	return b
}

// WithGenesisBlock sets the path of the genesis block file handed to every
// node.
func (b *Builder) WithGenesisBlock(path string) *Builder {
	b.genesisBlock = path
	return b
}

// WithGenesisHash makes the nodes fetch the genesis block with the given
// hash from their trusted peers instead of reading a file.
func (b *Builder) WithGenesisHash(hash string) *Builder {
	b.genesisHash = hash
	return b
}

// WithBinaryArgs sets arguments passed to every node before the ones added
// by the harness.
func (b *Builder) WithBinaryArgs(args ...string) *Builder {
	b.binaryArgs = append(b.binaryArgs, args...)
	return b
}

// WithEnv adds environment variables to every node.
func (b *Builder) WithEnv(env ...string) *Builder {
	b.env = append(b.env, env...)
	return b
}

// WithNodeEnv adds environment variables to one node.
func (b *Builder) WithNodeEnv(alias string, env ...string) *Builder {
	b.nodeEnv[alias] = append(b.nodeEnv[alias], env...)
	return b
}

// WithSecret sets the path of the leader secret file of a node.
func (b *Builder) WithSecret(alias, path string) *Builder {
	b.secrets[alias] = path
	return b
}

// Build validates the topology and opens the run journal. No node is
// started.
func (b *Builder) Build() (*Controller, error) {
	topo, err := topology.Build(b.descriptors)
	if err != nil {
		return nil, err
	}

	wallets := make(map[string]*wallet.Wallet, len(b.wallets))
	for _, w := range b.wallets {
		if _, ok := wallets[w.Alias()]; ok {
			return nil, fmt.Errorf("duplicate wallet alias '%s'", w.Alias())
		}
		wallets[w.Alias()] = w
	}

	var j journal.Journal
	if b.conf.Store {
		j, err = journal.NewBadgerJournal(b.conf.DatabaseDir)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
	} else {
		j = journal.NewInmemJournal()
	}

	logger := b.conf.Logger()
	verifier := fragment.NewVerifier(b.conf.FragmentPollInterval, j, logger.WithField("component", "fragment-verifier"))

	return &Controller{
		conf:     b.conf,
		topology: topo,
		builder:  b,
		nodes:    node.NewController(b.conf),
		handles:  make(map[string]*node.Handle),
		spawning: make(map[string]bool),
		wallets:  wallets,
		journal:  j,
		verifier: verifier,
		sender:   fragment.NewSender(verifier, b.conf.FragmentTimeout, j, logger.WithField("component", "fragment-sender")),
		logger:   logger.WithField("component", "network"),
	}, nil
}
