package types

import "testing"

func TestMaybePendingBlockWithTxsAsBlock(t *testing.T) {
	sealed := NewSealedBlock(BlockWithTxs{BlockNumber: 5, Status: BlockStatusAcceptedOnL2})
	got, err := sealed.AsBlock()
	if err != nil {
		t.Fatalf("AsBlock on sealed block: %v", err)
	}
	if got.BlockNumber != 5 {
		t.Fatalf("BlockNumber = %d, want 5", got.BlockNumber)
	}

	pending := MaybePendingBlockWithTxs{IsPending: true}
	if _, err := pending.AsBlock(); err == nil {
		t.Fatal("expected error extracting a pending block")
	}
}

func TestMaybePendingTransactionReceiptAsReceipt(t *testing.T) {
	sealed := NewSealedReceipt(InvokeTransactionReceipt{TransactionHash: FeltFromUint64(1)})
	got, err := sealed.AsReceipt()
	if err != nil {
		t.Fatalf("AsReceipt on sealed receipt: %v", err)
	}
	if got.TransactionHash.Uint64() != 1 {
		t.Fatalf("TransactionHash = %s, want 0x1", got.TransactionHash.Hex())
	}

	pending := MaybePendingTransactionReceipt{IsPending: true}
	if _, err := pending.AsReceipt(); err == nil {
		t.Fatal("expected error extracting a pending receipt")
	}
}
