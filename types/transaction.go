package types

import (
	"encoding/json"
	"fmt"
)

// TxKind tags the sum-type variants of Transaction. Only InvokeV1 is
// handled by the core; the others are recognized on the wire but rejected
// by every consumer.
type TxKind string

const (
	TxKindInvokeV1      TxKind = "INVOKE_V1"
	TxKindDeclare       TxKind = "DECLARE"
	TxKindDeployAccount TxKind = "DEPLOY_ACCOUNT"
)

// Dispatch tags recognized by calldata[0] of an InvokeV1 transaction.
const (
	DispatchFibonacci uint64 = 0
	DispatchFactorial uint64 = 1
	DispatchERC20Ctor uint64 = 2
)

// Transaction is the tagged sum of every transaction variant this system
// recognizes on the wire. Only the InvokeV1 fields are populated for
// supported transactions; Kind records which variant was decoded off the
// wire.
type Transaction struct {
	Kind TxKind `json:"type"`

	TransactionHash Felt   `json:"transaction_hash"`
	MaxFee          Felt   `json:"max_fee"`
	Signature       []Felt `json:"signature"`
	Nonce           Felt   `json:"nonce"`
	SenderAddress   Felt   `json:"sender_address"`
	Calldata        []Felt `json:"calldata"`
}

// ErrUnsupportedTransaction is returned by decoders and executors when
// asked to handle anything other than InvokeV1.
var ErrUnsupportedTransaction = fmt.Errorf("types: unsupported transaction variant")

// DispatchTag returns calldata[0] as a uint64, or an error if calldata is
// empty. Used by the execution engine to select a routine.
func (t Transaction) DispatchTag() (uint64, error) {
	if len(t.Calldata) == 0 {
		return 0, fmt.Errorf("types: invoke calldata is empty")
	}
	return t.Calldata[0].Uint64(), nil
}

// Args returns calldata[1:], the entry-point arguments following the
// dispatch tag.
func (t Transaction) Args() []Felt {
	if len(t.Calldata) <= 1 {
		return nil
	}
	return t.Calldata[1:]
}

// MarshalJSON / UnmarshalJSON round-trip the canonical JSON text encoding
// of the variant shape, defaulting an absent "type" field to InvokeV1 for
// older callers that omit it.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(alias(t))
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Transaction(a)
	if t.Kind == "" {
		t.Kind = TxKindInvokeV1
	}
	return nil
}

// IsInvokeV1 reports whether this is the one supported variant.
func (t Transaction) IsInvokeV1() bool { return t.Kind == TxKindInvokeV1 }
