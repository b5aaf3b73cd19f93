package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/netharness/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the
	// Badger database of the run journal.
	DefaultBadgerFile = "journal_db"

	// DefaultTopologyFile is the default name of the topology file read by the
	// CLI.
	DefaultTopologyFile = "topology.yaml"
)

// Default configuration values.
const (
	DefaultLogLevel              = "debug"
	DefaultNodeBinary            = "jormungandr"
	DefaultBootstrapTimeout      = 150 * time.Second
	DefaultBootstrapPollInterval = 2 * time.Second
	DefaultShutdownTimeout       = 30 * time.Second
	DefaultFragmentTimeout       = 60 * time.Second
	DefaultFragmentPollInterval  = 1 * time.Second
	DefaultSyncPollInterval      = 1 * time.Second
	DefaultReportInterval        = 20 * time.Second
	DefaultLongReportInterval    = 60 * time.Second
	DefaultLogBufferSize         = 2000
	DefaultHTTPTimeout           = 5 * time.Second
	DefaultTCPTimeout            = 1000 * time.Millisecond
	DefaultMaxPool               = 2
	DefaultStore                 = false
	DefaultPersistOnFailure      = true
)

// Config contains all the configuration properties of a harness run.
type Config struct {
	// DataDir is the top-level directory containing harness configuration
	// and data. Node working directories are created in a temporary location,
	// not here.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a JSON copy of every harness log record.
	LogFile string `mapstructure:"log-file"`

	// NodeBinary is the path of the node executable under test.
	NodeBinary string `mapstructure:"node-binary"`

	// BootstrapTimeout bounds the wait for a freshly spawned node to report
	// Running.
	BootstrapTimeout time.Duration `mapstructure:"bootstrap-timeout"`

	// BootstrapPollInterval is the delay between two status polls during
	// bootstrap.
	BootstrapPollInterval time.Duration `mapstructure:"bootstrap-poll"`

	// ShutdownTimeout bounds the wait for the node process to exit after a
	// successful shutdown request.
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`

	// FragmentTimeout is the default convergence timeout of a fragment.
	FragmentTimeout time.Duration `mapstructure:"fragment-timeout"`

	// FragmentPollInterval is the delay between two fragment log polls.
	FragmentPollInterval time.Duration `mapstructure:"fragment-poll"`

	// SyncPollInterval is the delay between two sync snapshots.
	SyncPollInterval time.Duration `mapstructure:"sync-poll"`

	// ReportInterval is the cadence of progress reports while measuring sync.
	ReportInterval time.Duration `mapstructure:"report-interval"`

	// LogBufferSize is the number of stderr lines kept per node.
	LogBufferSize int `mapstructure:"log-buffer"`

	// HTTPTimeout applies to every REST call made to a node.
	HTTPTimeout time.Duration `mapstructure:"http-timeout"`

	// TCPTimeout is the I/O deadline of wire protocol connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// MaxPool controls how many wire connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// Store activates the badger-backed run journal.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing the journal database files.
	DatabaseDir string `mapstructure:"db"`

	// PersistOnFailure copies node working directories aside when a run
	// fails.
	PersistOnFailure bool `mapstructure:"persist-on-failure"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:               DefaultDataDir(),
		LogLevel:              DefaultLogLevel,
		NodeBinary:            DefaultNodeBinary,
		BootstrapTimeout:      DefaultBootstrapTimeout,
		BootstrapPollInterval: DefaultBootstrapPollInterval,
		ShutdownTimeout:       DefaultShutdownTimeout,
		FragmentTimeout:       DefaultFragmentTimeout,
		FragmentPollInterval:  DefaultFragmentPollInterval,
		SyncPollInterval:      DefaultSyncPollInterval,
		ReportInterval:        DefaultReportInterval,
		LogBufferSize:         DefaultLogBufferSize,
		HTTPTimeout:           DefaultHTTPTimeout,
		TCPTimeout:            DefaultTCPTimeout,
		MaxPool:               DefaultMaxPool,
		Store:                 DefaultStore,
		DatabaseDir:           DefaultDatabaseDir(),
		PersistOnFailure:      DefaultPersistOnFailure,
	}

	return config
}

// NewTestConfig returns a config object with default values, short polling
// intervals, and a special logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = t.TempDir()
	config.DatabaseDir = filepath.Join(config.DataDir, DefaultBadgerFile)
	config.BootstrapPollInterval = 20 * time.Millisecond
	config.FragmentPollInterval = 10 * time.Millisecond
	config.SyncPollInterval = 10 * time.Millisecond
	config.ReportInterval = 50 * time.Millisecond
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level harness directory, and updates the database
// directory if it is currently set to the default value.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// TopologyFile returns the full path of the default topology file.
func (c *Config) TopologyFile() string {
	return filepath.Join(c.DataDir, DefaultTopologyFile)
}

// Logger returns a formatted logrus Entry, with prefix set to "netharness".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.AddHook(fileHook(c.LogFile))
		}
	}
	return c.logger.WithField("prefix", "netharness")
}

func fileHook(path string) logrus.Hook {
	pathMap := lfshook.PathMap{}
	for _, l := range logrus.AllLevels {
		pathMap[l] = path
	}
	return lfshook.NewHook(pathMap, &logrus.JSONFormatter{})
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level harness
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Netharness")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Netharness")
		} else {
			return filepath.Join(home, ".netharness")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
