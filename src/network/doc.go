// Package network assembles a test network: it validates the topology,
// spawns the nodes in trust order, and hands the running nodes to the
// fragment tracker and the sync measurer.
//
//	ctl, err := network.NewBuilder(conf).
//		WithNodes(
//			topology.NewNode("leader1"),
//			topology.NewNode("leader2").WithTrustedPeer("leader1"),
//			topology.NewNode("passive").WithTrustedPeer("leader2").Passive(),
//		).
//		WithWallet(alice).
//		WithGenesisBlock(block0).
//		Build()
//	...
//	if _, err := ctl.SpawnAll(); err != nil {
//		...
//	}
//	defer ctl.Finish(t.Failed(), nil)
package network
