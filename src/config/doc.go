// Package config defines the configuration of a netharness run.
//
// Whether the harness is driven from Go tests or from the netharness command
// line, it uses the Config object defined in this package to carry timeouts,
// polling intervals and paths. The harness relies on a data directory, defined
// by Config.DataDir, where it may find:
//
//  netharness.toml // (optional) configuration file read by the CLI (.yaml and .json also work).
//  topology.yaml // (optional) default topology read by "netharness run".
//  journal_db // badger database holding the run journal when Store is set.
package config
