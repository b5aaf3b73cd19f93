package node

import (
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/netharness/src/topology"
	"gopkg.in/yaml.v3"
)

// Files created in the working directory of a node.
const (
	ConfigFileName = "node_config.yaml"
	StdoutFileName = "node.log"
	StorageDirName = "storage"
)

// TrustedPeer is a peer a node connects to when it starts.
type TrustedPeer struct {
	Address string `yaml:"address"`
	ID      string `yaml:"id,omitempty"`
}

// SpawnParams describes how to launch one node process.
type SpawnParams struct {
	// Binary is the node executable. BinaryArgs are passed before the
	// arguments added by the Controller.
	Binary     string
	BinaryArgs []string

	// Env is appended to the environment of the harness.
	Env []string

	// RESTAddr and P2PAddr are the host:port the node listens on. Both are
	// checked before the process is launched.
	RESTAddr string
	P2PAddr  string

	// PublicAddr is the P2P address advertised to peers. Defaults to P2PAddr.
	PublicAddr string

	TrustedPeers []TrustedPeer

	// GenesisBlock is the path of the genesis block file. Nodes that do not
	// create the chain use GenesisHash instead.
	GenesisBlock string
	GenesisHash  string

	// Secret is the path of the leader secret file, if any.
	Secret string

	// WorkingDir is created if it does not exist. When empty, a temporary
	// directory is used.
	WorkingDir string

	LogLevel string
}

// LogConfig ...
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// RestConfig ...
type RestConfig struct {
	Listen string `yaml:"listen"`
}

// P2PConfig ...
type P2PConfig struct {
	PublicAddress string        `yaml:"public_address,omitempty"`
	ListenAddress string        `yaml:"listen_address,omitempty"`
	TrustedPeers  []TrustedPeer `yaml:"trusted_peers"`
}

// FileConfig is the configuration file handed to the node with --config.
type FileConfig struct {
	Storage    string     `yaml:"storage,omitempty"`
	Log        LogConfig  `yaml:"log"`
	Rest       RestConfig `yaml:"rest"`
	P2P        P2PConfig  `yaml:"p2p"`
	Leadership string     `yaml:"leadership"`
}

// NewFileConfig builds the configuration file of a node. Log records go to
// stderr as JSON so that the harness can query them.
func NewFileConfig(desc topology.NodeDescriptor, params SpawnParams, workDir string) FileConfig {
	level := params.LogLevel
	if level == "" {
		level = LevelInfo
	}

	public := params.PublicAddr
	if public == "" {
		public = params.P2PAddr
	}

	c := FileConfig{
		Log: LogConfig{
			Level:  level,
			Format: "json",
			Output: "stderr",
		},
		Rest: RestConfig{Listen: params.RESTAddr},
		P2P: P2PConfig{
			PublicAddress: public,
			ListenAddress: params.P2PAddr,
			TrustedPeers:  append([]TrustedPeer{}, params.TrustedPeers...),
		},
		Leadership: "leader",
	}
	if desc.Leadership == topology.Passive {
		c.Leadership = "passive"
	}
	if desc.Persistence == topology.Persistent {
		c.Storage = filepath.Join(workDir, StorageDirName)
	}
	return c
}

// Write saves the configuration as YAML.
func (c FileConfig) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFileConfig loads a configuration written by Write.
func ReadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c FileConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (p SpawnParams) args(configPath string) []string {
	args := append([]string{}, p.BinaryArgs...)
	args = append(args, "--config", configPath)
	if p.GenesisBlock != "" {
		args = append(args, "--genesis-block", p.GenesisBlock)
	} else if p.GenesisHash != "" {
		args = append(args, "--genesis-block-hash", p.GenesisHash)
	}
	if p.Secret != "" {
		args = append(args, "--secret", p.Secret)
	}
	return args
}
