package bank

import (
	"errors"
	"math/big"
	"testing"

	"intentnet/core/types"
)

var (
	alice = types.BytesToAddress([]byte{0x01})
	bob   = types.BytesToAddress([]byte{0x02})
	asset = types.AssetID(1)
)

func TestMintAndTransfer(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.Mint(alice, asset, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, asset, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := ledger.BalanceOf(alice, asset); got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("alice balance = %s, want 60", got)
	}
	if got := ledger.BalanceOf(bob, asset); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("bob balance = %s, want 40", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.Mint(alice, asset, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.Transfer(alice, bob, asset, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("transfer error = %v, want ErrInsufficientBalance", err)
	}
}

func TestReserveMovesFundsOutOfFree(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.Mint(alice, asset, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Reserve(alice, asset, big.NewInt(70)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := ledger.BalanceOf(alice, asset); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("free = %s, want 30", got)
	}
	if got := ledger.ReservedOf(alice, asset); got.Cmp(big.NewInt(70)) != 0 {
		t.Fatalf("reserved = %s, want 70", got)
	}
	// Reserved funds cannot be transferred away.
	if err := ledger.Transfer(alice, bob, asset, big.NewInt(40)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("transfer error = %v, want ErrInsufficientBalance", err)
	}
	if err := ledger.Unreserve(alice, asset, big.NewInt(70)); err != nil {
		t.Fatalf("unreserve: %v", err)
	}
	if got := ledger.BalanceOf(alice, asset); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("free after unreserve = %s, want 100", got)
	}
}

func TestUnreserveBeyondReserved(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.Mint(alice, asset, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Reserve(alice, asset, big.NewInt(20)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ledger.Unreserve(alice, asset, big.NewInt(21)); !errors.Is(err, ErrInsufficientReserved) {
		t.Fatalf("unreserve error = %v, want ErrInsufficientReserved", err)
	}
}

func TestSnapshotIsolatesMutations(t *testing.T) {
	ledger := NewLedger()
	if err := ledger.Mint(alice, asset, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	snap := ledger.Snapshot()
	if err := snap.Transfer(alice, bob, asset, big.NewInt(100)); err != nil {
		t.Fatalf("transfer on snapshot: %v", err)
	}
	if got := ledger.BalanceOf(alice, asset); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("live ledger changed by snapshot mutation: alice = %s", got)
	}

	ledger.Restore(snap)
	if got := ledger.BalanceOf(bob, asset); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("restore did not commit: bob = %s", got)
	}
}
