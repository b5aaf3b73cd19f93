package net

// HashSize is the size of block, header and fragment ids.
const HashSize = 32

// Header is a block header.
type Header struct {
	ID      []byte
	Parent  []byte
	Height  uint64
	Epoch   uint32
	Slot    uint32
	Version uint32
}

// Block is a header with its contents.
type Block struct {
	Header    Header
	Fragments [][]byte
}

// Fragment is an opaque fragment with its id.
type Fragment struct {
	ID      []byte
	Content []byte
}

// HandshakeRequest opens a session. The nonce is meant to be signed by the
// responder.
type HandshakeRequest struct {
	Nonce []byte
}

// HandshakeResponse advertises the protocol version and the genesis block id
// of the responder.
type HandshakeResponse struct {
	Version uint32
	Block0  []byte
	NodeID  []byte
}

// TipRequest asks for the header of the current tip.
type TipRequest struct{}

// TipResponse ...
type TipResponse struct {
	Header Header
}

// PullBlocksRequest asks for the blocks between one of the From checkpoints
// and To.
type PullBlocksRequest struct {
	From [][]byte
	To   []byte
}

// PullBlocksToTipRequest asks for the blocks between one of the From
// checkpoints and the tip.
type PullBlocksToTipRequest struct {
	From [][]byte
}

// PullHeadersRequest asks for the headers between one of the From checkpoints
// and To.
type PullHeadersRequest struct {
	From [][]byte
	To   []byte
}

// GetHeadersRequest asks for specific headers.
type GetHeadersRequest struct {
	IDs [][]byte
}

// GetBlocksRequest asks for specific blocks.
type GetBlocksRequest struct {
	IDs [][]byte
}

// GetFragmentsRequest asks for specific fragments.
type GetFragmentsRequest struct {
	IDs [][]byte
}

// UploadBlocksRequest carries blocks pushed by the caller. On the wire, the
// blocks follow the request as StreamFrames.
type UploadBlocksRequest struct {
	Blocks []Block `codec:"-"`
}

// PushHeadersRequest carries headers pushed by the caller. On the wire, the
// headers follow the request as StreamFrames.
type PushHeadersRequest struct {
	Headers []Header `codec:"-"`
}

// Ack acknowledges an upload.
type Ack struct {
	Received int
}

// BlockStream, HeaderStream and FragmentStream are the responses of the RPCs
// returning sequences. The transport writes them item by item.
type (
	BlockStream    []Block
	HeaderStream   []Header
	FragmentStream []Fragment
)

// StreamFrame carries one item of a sequence. The last frame of a sequence has
// More set to false and no item.
type StreamFrame struct {
	More     bool
	Block    *Block
	Header   *Header
	Fragment *Fragment
}
