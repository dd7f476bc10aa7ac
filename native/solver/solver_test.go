package solver

import (
	"math/big"
	"testing"

	"intentnet/core/types"
	"intentnet/native/bank"
	"intentnet/native/settlement"
	"intentnet/native/venues"
)

const (
	hub    = types.AssetID(0)
	assetA = types.AssetID(1)
	assetB = types.AssetID(2)
)

var (
	alice = types.BytesToAddress([]byte{0x01})
	bob   = types.BytesToAddress([]byte{0x02})
	poolA = types.BytesToAddress([]byte{0xa1})
	poolB = types.BytesToAddress([]byte{0xa2})
)

type solverFixture struct {
	ledger   *bank.Ledger
	registry *venues.Registry
	solver   *Solver
	seq      uint64
}

// newSolverFixture funds two deep fee-free pools so asset A and asset B both
// trade 1:1 against the hub.
func newSolverFixture(t *testing.T) *solverFixture {
	t.Helper()
	ledger := bank.NewLedger()
	registry := venues.NewRegistry()
	for _, pool := range []struct {
		id      string
		account types.Address
		asset   types.AssetID
	}{
		{"xyk-a", poolA, assetA},
		{"xyk-b", poolB, assetB},
	} {
		if err := ledger.Mint(pool.account, pool.asset, big.NewInt(1_000_000)); err != nil {
			t.Fatalf("mint: %v", err)
		}
		if err := ledger.Mint(pool.account, hub, big.NewInt(1_000_000)); err != nil {
			t.Fatalf("mint: %v", err)
		}
		registry.Register(venues.NewConstantProduct(pool.id, pool.account, pool.asset, hub, 0, ledger))
	}
	return &solverFixture{
		ledger:   ledger,
		registry: registry,
		solver:   New(ledger, registry, hub, DefaultConfig()),
	}
}

// escrowedIntent funds and reserves the owner's sell side the way the intent
// engine would before handing the batch to a solver.
func (f *solverFixture) escrowedIntent(t *testing.T, owner types.Address, assetIn, assetOut types.AssetID, amountIn, amountOut int64, partial bool) *types.Intent {
	t.Helper()
	f.seq++
	if err := f.ledger.Mint(owner, assetIn, big.NewInt(amountIn)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.ledger.Reserve(owner, assetIn, big.NewInt(amountIn)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	return &types.Intent{
		ID:        types.NewIntentID(10_000, f.seq),
		Owner:     owner,
		AssetIn:   assetIn,
		AssetOut:  assetOut,
		AmountIn:  big.NewInt(amountIn),
		AmountOut: big.NewInt(amountOut),
		SwapType:  types.SwapTypeExactIn,
		Partial:   partial,
		Deadline:  10_000,
	}
}

type mapIntentSource map[types.IntentID]*types.Intent

func (m mapIntentSource) Get(id types.IntentID) (*types.Intent, bool) {
	intent, ok := m[id]
	return intent, ok
}

// validate runs the produced solution through the independent verifier.
func (f *solverFixture) validate(t *testing.T, batch []*types.Intent, solution *types.Solution) {
	t.Helper()
	source := make(mapIntentSource, len(batch))
	for _, intent := range batch {
		source[intent.ID] = intent
	}
	prices := venues.NewSpotPriceProvider(f.registry, hub)
	if err := settlement.NewVerifier(source, prices).Validate(solution); err != nil {
		t.Fatalf("solver output fails validation: %v", err)
	}
}

func TestSolveDirectMatchNeedsNoVenues(t *testing.T) {
	f := newSolverFixture(t)
	batch := []*types.Intent{
		f.escrowedIntent(t, alice, assetA, assetB, 100_000, 100_000, false),
		f.escrowedIntent(t, bob, assetB, assetA, 100_000, 100_000, false),
	}

	solution, err := f.solver.Solve(batch)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solution.ResolvedIntents) != 2 {
		t.Fatalf("resolved %d intents, want 2", len(solution.ResolvedIntents))
	}
	for _, instruction := range solution.Instructions {
		if instruction.Kind == types.InstructionSwapExactIn || instruction.Kind == types.InstructionSwapExactOut {
			t.Fatalf("direct match routed through a venue: %+v", instruction)
		}
	}
	f.validate(t, batch, solution)
}

func TestSolveRoutesResidualThroughVenue(t *testing.T) {
	f := newSolverFixture(t)
	batch := []*types.Intent{
		f.escrowedIntent(t, alice, assetA, hub, 10_000, 9_000, false),
	}

	solution, err := f.solver.Solve(batch)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solution.ResolvedIntents) != 1 {
		t.Fatalf("resolved %d intents, want 1", len(solution.ResolvedIntents))
	}
	resolved := solution.ResolvedIntents[0]
	if resolved.AmountIn.Cmp(big.NewInt(10_000)) != 0 || resolved.AmountOut.Cmp(big.NewInt(9_000)) != 0 {
		t.Fatalf("resolution = %s/%s, want full 10000/9000", resolved.AmountIn, resolved.AmountOut)
	}

	var swaps int
	for _, instruction := range solution.Instructions {
		if instruction.Kind == types.InstructionSwapExactIn {
			swaps++
		}
	}
	if swaps != 1 {
		t.Fatalf("swap legs = %d, want 1", swaps)
	}
	f.validate(t, batch, solution)
}

func TestSolveDropsPriceInconsistentIntent(t *testing.T) {
	f := newSolverFixture(t)
	fair := f.escrowedIntent(t, alice, assetA, hub, 10_000, 9_000, false)
	greedy := f.escrowedIntent(t, bob, assetA, hub, 10_000, 12_000, false)
	batch := []*types.Intent{fair, greedy}

	solution, err := f.solver.Solve(batch)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solution.ResolvedIntents) != 1 {
		t.Fatalf("resolved %d intents, want only the marketable one", len(solution.ResolvedIntents))
	}
	if solution.ResolvedIntents[0].IntentID != fair.ID {
		t.Fatalf("resolved %s, want %s", solution.ResolvedIntents[0].IntentID, fair.ID)
	}
	f.validate(t, batch, solution)
}

func TestSolveReturnsEmptyForUnmarketableBatch(t *testing.T) {
	f := newSolverFixture(t)
	// Demands 20% above the venue price; nothing can fill it.
	batch := []*types.Intent{
		f.escrowedIntent(t, alice, assetA, hub, 10_000, 12_000, false),
	}

	solution, err := f.solver.Solve(batch)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solution.ResolvedIntents) != 0 || solution.Score != 0 {
		t.Fatalf("solution = %+v, want empty", solution)
	}
}

func TestSolveGivesUpOnUnmarketablePartial(t *testing.T) {
	f := newSolverFixture(t)
	// Above market at every size, so halving can never make it feasible.
	batch := []*types.Intent{
		f.escrowedIntent(t, alice, assetA, hub, 10_000, 11_000, true),
	}

	solution, err := f.solver.Solve(batch)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solution.ResolvedIntents) != 0 {
		t.Fatalf("resolved %d intents, want 0", len(solution.ResolvedIntents))
	}
}

func TestSolveScoresMoreIntentsHigher(t *testing.T) {
	f := newSolverFixture(t)
	single := []*types.Intent{
		f.escrowedIntent(t, alice, assetA, hub, 10_000, 9_000, false),
	}
	solutionOne, err := f.solver.Solve(single)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	pair := append(single, f.escrowedIntent(t, bob, hub, assetA, 10_000, 9_000, false))
	solutionTwo, err := f.solver.Solve(pair)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(solutionTwo.ResolvedIntents) != 2 {
		t.Fatalf("resolved %d intents, want 2", len(solutionTwo.ResolvedIntents))
	}
	if solutionTwo.Score <= solutionOne.Score {
		t.Fatalf("two-intent score %d not above one-intent score %d", solutionTwo.Score, solutionOne.Score)
	}
}
