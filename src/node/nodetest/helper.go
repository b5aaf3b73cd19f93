package nodetest

import (
	"fmt"
	"os"
	"time"

	"github.com/mosaicnetworks/netharness/src/node/rest"
	"gopkg.in/yaml.v3"
)

// Environment variables read by a test binary acting as a node.
const (
	HelperEnv     = "NETHARNESS_HELPER_NODE"
	HelperModeEnv = "NETHARNESS_HELPER_MODE"
)

// Helper modes.
const (
	// ModeNormal bootstraps, then exits cleanly on /shutdown.
	ModeNormal = ""
	// ModeNeverRunning stays Bootstrapping forever.
	ModeNeverRunning = "never-running"
	// ModeRefuseShutdown answers /shutdown with an error message.
	ModeRefuseShutdown = "refuse-shutdown"
	// ModeHang accepts /shutdown but never exits.
	ModeHang = "hang"
	// ModeCrashOnShutdown exits with a non-zero status on /shutdown.
	ModeCrashOnShutdown = "crash-on-shutdown"
	// ModeCrash exits right after starting.
	ModeCrash = "crash"
)

// HelperArgs returns the arguments making a test binary run only testName,
// which is expected to call RunHelperNode.
func HelperArgs(testName string) []string {
	return []string{"-test.run=" + testName, "--"}
}

// HelperEnvFor returns the environment of a helper node running in mode.
func HelperEnvFor(mode string) []string {
	return []string{HelperEnv + "=1", HelperModeEnv + "=" + mode}
}

// IsHelper reports whether the current process was launched as a helper
// node.
func IsHelper() bool {
	return os.Getenv(HelperEnv) == "1"
}

type helperConfig struct {
	Rest struct {
		Listen string `yaml:"listen"`
	} `yaml:"rest"`
}

func fatal(msg string, err error) int {
	fmt.Fprintf(os.Stderr, `{"level":"fatal","msg":%q,"error":%q}`+"\n", msg, err.Error())
	return 1
}

// RunHelperNode serves the node REST API on the address found in the
// configuration file passed with --config, and returns the exit status of
// the node. Logs are written to stderr as JSON records.
func RunHelperNode() int {
	mode := os.Getenv(HelperModeEnv)

	configPath := ""
	for i, a := range os.Args {
		if a == "--config" && i+1 < len(os.Args) {
			configPath = os.Args[i+1]
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fatal("cannot read config", err)
	}
	var conf helperConfig
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return fatal("cannot parse config", err)
	}

	fmt.Fprintln(os.Stderr, `{"level":"info","msg":"starting node"}`)

	if mode == ModeCrash {
		fmt.Fprintln(os.Stderr, `{"level":"error","msg":"storage corrupted"}`)
		return 2
	}

	fake, err := NewFakeNodeOn(NewChain(), "helper", conf.Rest.Listen)
	if err != nil {
		return fatal("cannot listen", err)
	}

	switch mode {
	case ModeNeverRunning:
		fake.SetState(rest.Bootstrapping)
	case ModeRefuseShutdown:
		fake.SetShutdownMessage("cannot shutdown: storage busy")
	}

	done := make(chan int, 1)
	fake.OnShutdown(func() {
		fmt.Fprintln(os.Stderr, `{"level":"info","msg":"shutting down"}`)
		// let the response reach the harness
		time.Sleep(100 * time.Millisecond)
		switch mode {
		case ModeHang:
		case ModeCrashOnShutdown:
			done <- 3
		default:
			done <- 0
		}
	})

	return <-done
}
