package mock

import "fmt"

// MethodType identifies an RPC of the wire protocol.
type MethodType uint8

const (
	Handshake MethodType = iota
	Tip
	GetBlocks
	GetHeaders
	GetFragments
	PullBlocks
	PullBlocksToTip
	PullHeaders
	UploadBlocks
	PushHeaders
)

var methodNames = map[MethodType]string{
	Handshake:       "Handshake",
	Tip:             "Tip",
	GetBlocks:       "GetBlocks",
	GetHeaders:      "GetHeaders",
	GetFragments:    "GetFragments",
	PullBlocks:      "PullBlocks",
	PullBlocksToTip: "PullBlocksToTip",
	PullHeaders:     "PullHeaders",
	UploadBlocks:    "UploadBlocks",
	PushHeaders:     "PushHeaders",
}

func (m MethodType) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MethodType(%d)", m)
}

// ParseMethodType is the inverse of String.
func ParseMethodType(s string) (MethodType, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown method %q", s)
}

// ProtocolVersion is the consensus version advertised in the handshake.
type ProtocolVersion uint32

const (
	Bft          ProtocolVersion = 1
	GenesisPraos ProtocolVersion = 2
)

func (v ProtocolVersion) String() string {
	switch v {
	case Bft:
		return "Bft"
	case GenesisPraos:
		return "GenesisPraos"
	default:
		return fmt.Sprintf("ProtocolVersion(%d)", uint32(v))
	}
}

// ParseProtocolVersion accepts "bft" and "genesis_praos" in any case, or
// their String form.
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	switch s {
	case "bft", "Bft", "BFT":
		return Bft, nil
	case "genesis_praos", "GenesisPraos", "genesis", "praos":
		return GenesisPraos, nil
	default:
		return 0, fmt.Errorf("unknown protocol version %q", s)
	}
}

// ExitCode is the result of FinishAndVerify.
type ExitCode int

const (
	Success ExitCode = iota
	Failure
)

func (c ExitCode) String() string {
	if c == Success {
		return "Success"
	}
	return "Failure"
}
