package types

// MempoolMessage is the sum type carried between mempool and consensus:
// either a batch of framed transaction byte-strings, or a request for a
// batch the recipient doesn't have.
type MempoolMessage struct {
	Kind          MempoolMessageKind `json:"kind"`
	Batch         [][]byte           `json:"batch,omitempty"`
	RequestDigest Felt               `json:"request_digest,omitempty"`
	RequestOrigin string             `json:"request_origin,omitempty"`
}

type MempoolMessageKind string

const (
	MempoolMessageBatch        MempoolMessageKind = "BATCH"
	MempoolMessageBatchRequest MempoolMessageKind = "BATCH_REQUEST"
)

// NewBatch builds a Batch-kind message from framed transaction bytes.
func NewBatch(txs [][]byte) MempoolMessage {
	return MempoolMessage{Kind: MempoolMessageBatch, Batch: txs}
}

// NewBatchRequest builds a BatchRequest-kind message.
func NewBatchRequest(digest Felt, origin string) MempoolMessage {
	return MempoolMessage{Kind: MempoolMessageBatchRequest, RequestDigest: digest, RequestOrigin: origin}
}

// IsBatch reports whether this message carries a transaction batch.
func (m MempoolMessage) IsBatch() bool { return m.Kind == MempoolMessageBatch }
