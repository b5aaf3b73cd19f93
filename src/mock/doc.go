// Package mock implements a fake peer speaking the node-to-node wire protocol.
//
// The mock answers from canned configuration (genesis block, protocol
// version, tip) and records every call it receives. Tests point a real node at
// the mock, let it interact, then call FinishAndVerify with a predicate over
// the recorded calls:
//
//	controller, err := mock.NewBuilder().
//		WithPort(port).
//		WithGenesisBlock(block0).
//		WithProtocolVersion(mock.GenesisPraos).
//		Build()
//	...
//	code := controller.FinishAndVerify(func(v *mock.Verifier) bool {
//		return v.MethodExecutedAtLeastOnce(mock.Handshake)
//	})
package mock
