package intents

import (
	"math/big"
	"path/filepath"
	"testing"

	"intentnet/core/types"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := OpenBoltStore(filepath.Join(t.TempDir(), "intents.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleIntent(deadline int64, seq uint64) *types.Intent {
	return &types.Intent{
		ID:        types.NewIntentID(deadline, seq),
		Owner:     types.BytesToAddress([]byte{0x42}),
		AssetIn:   1,
		AssetOut:  2,
		AmountIn:  big.NewInt(12_345),
		AmountOut: big.NewInt(9_876),
		SwapType:  types.SwapTypeExactOut,
		Partial:   true,
		Deadline:  deadline,
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	intent := sampleIntent(5_000, 7)
	if err := store.IntentPut(intent); err != nil {
		t.Fatalf("put: %v", err)
	}

	loaded, ok := store.IntentGet(intent.ID)
	if !ok {
		t.Fatal("intent not found after put")
	}
	if loaded.Owner != intent.Owner ||
		loaded.AssetIn != intent.AssetIn ||
		loaded.AssetOut != intent.AssetOut ||
		loaded.AmountIn.Cmp(intent.AmountIn) != 0 ||
		loaded.AmountOut.Cmp(intent.AmountOut) != 0 ||
		loaded.SwapType != intent.SwapType ||
		loaded.Partial != intent.Partial ||
		loaded.Deadline != intent.Deadline {
		t.Fatalf("loaded intent differs: %+v vs %+v", loaded, intent)
	}
}

func TestBoltStoreRemove(t *testing.T) {
	store := openTestStore(t)
	intent := sampleIntent(5_000, 1)
	if err := store.IntentPut(intent); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.IntentRemove(intent.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := store.IntentGet(intent.ID); ok {
		t.Fatal("intent survived remove")
	}
}

func TestBoltStoreIteratesInDeadlineOrder(t *testing.T) {
	store := openTestStore(t)
	for _, intent := range []*types.Intent{
		sampleIntent(9_000, 1),
		sampleIntent(3_000, 2),
		sampleIntent(6_000, 3),
	} {
		if err := store.IntentPut(intent); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	var deadlines []int64
	if err := store.IntentIterate(func(intent *types.Intent) bool {
		deadlines = append(deadlines, intent.Deadline)
		return true
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	want := []int64{3_000, 6_000, 9_000}
	if len(deadlines) != len(want) {
		t.Fatalf("iterated %d intents, want %d", len(deadlines), len(want))
	}
	for i := range want {
		if deadlines[i] != want[i] {
			t.Fatalf("iteration order = %v, want %v", deadlines, want)
		}
	}
}

func TestBoltStoreSequenceIsMonotonic(t *testing.T) {
	store := openTestStore(t)
	first, err := store.NextSequence()
	if err != nil {
		t.Fatalf("next sequence: %v", err)
	}
	second, err := store.NextSequence()
	if err != nil {
		t.Fatalf("next sequence: %v", err)
	}
	if second <= first {
		t.Fatalf("sequence not monotonic: %d then %d", first, second)
	}
}
