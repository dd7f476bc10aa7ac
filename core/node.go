package core

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"intentnet/core/events"
	"intentnet/core/types"
	"intentnet/native/auction"
	"intentnet/native/bank"
	"intentnet/native/intents"
	"intentnet/native/settlement"
	"intentnet/native/solver"
	"intentnet/native/venues"
	"intentnet/observability/metrics"
)

var (
	// ErrInvalidSolution is returned when a submitted solution fails
	// validation; the underlying cause is wrapped.
	ErrInvalidSolution = errors.New("node: invalid solution")
	errNilDeps         = errors.New("node: missing dependency")
)

const solverSeed = "intentnet/node/solver"

// SolverAddress identifies solutions produced by the node's built-in solver.
func SolverAddress() types.Address {
	return types.BytesToAddress(ethcrypto.Keccak256([]byte(solverSeed))[12:])
}

// Config wires a Node together.
type Config struct {
	Ledger   *bank.Ledger
	Intents  *intents.Engine
	Registry *venues.Registry
	HubAsset types.AssetID
	// DustThreshold is forwarded to the built-in solver.
	DustThreshold *big.Int
	// MaxIntentsPerRun caps the batch handed to the built-in solver.
	MaxIntentsPerRun int
	// SolverEnabled runs the built-in solver every block in addition to
	// accepting external submissions.
	SolverEnabled bool
	Emitter       events.Emitter
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
	NowFunc       func() int64
}

// Node drives the block cycle: it accepts intents and scored solutions all
// block long, and at each boundary executes the auction winner, sweeps
// expired intents and opens the next block. All settlement is funneled
// through the single Node so per-block execution stays sequential even
// though submission handling is concurrent.
type Node struct {
	mu sync.Mutex

	ledger   *bank.Ledger
	intents  *intents.Engine
	registry *venues.Registry
	hubAsset types.AssetID

	slot     *auction.Slot
	verifier *settlement.Verifier
	executor *settlement.Executor
	solver   *solver.Solver

	// candidate is the solution behind the slot's current winner.
	candidate *types.Solution

	maxPerRun     int
	solverEnabled bool
	emitter       events.Emitter
	logger        *slog.Logger
	metrics       *metrics.Metrics
	nowFn         func() int64
}

// NewNode assembles the settlement pipeline around the given ledger, intent
// engine and venue registry.
func NewNode(cfg Config) (*Node, error) {
	if cfg.Ledger == nil || cfg.Intents == nil || cfg.Registry == nil {
		return nil, errNilDeps
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nowFn := cfg.NowFunc
	if nowFn == nil {
		nowFn = func() int64 { return time.Now().Unix() }
	}
	maxPerRun := cfg.MaxIntentsPerRun
	if maxPerRun <= 0 {
		maxPerRun = 128
	}

	prices := venues.NewSpotPriceProvider(cfg.Registry, cfg.HubAsset)
	slot := auction.NewSlot(1)
	slot.SetEmitter(emitter)

	solverCfg := solver.DefaultConfig()
	if cfg.DustThreshold != nil {
		solverCfg.DustThreshold = cfg.DustThreshold
	}

	n := &Node{
		ledger:        cfg.Ledger,
		intents:       cfg.Intents,
		registry:      cfg.Registry,
		hubAsset:      cfg.HubAsset,
		slot:          slot,
		verifier:      settlement.NewVerifier(cfg.Intents, prices),
		executor:      settlement.NewExecutor(cfg.Ledger, cfg.Registry, cfg.Intents, nowFn),
		solver:        solver.New(cfg.Ledger, cfg.Registry, cfg.HubAsset, solverCfg),
		maxPerRun:     maxPerRun,
		solverEnabled: cfg.SolverEnabled,
		emitter:       emitter,
		logger:        logger,
		metrics:       cfg.Metrics,
		nowFn:         nowFn,
	}
	return n, nil
}

// Block returns the block currently accepting submissions.
func (n *Node) Block() uint64 { return n.slot.Block() }

// Winner returns the current auction leader, if any.
func (n *Node) Winner() (auction.Winner, bool) { return n.slot.Winner() }

// SubmitIntent escrows and stores a new intent.
func (n *Node) SubmitIntent(owner types.Address, assetIn, assetOut types.AssetID, amountIn, amountOut *big.Int, swapType types.SwapType, partial bool, deadline int64) (types.IntentID, error) {
	id, err := n.intents.Submit(owner, assetIn, assetOut, amountIn, amountOut, swapType, partial, deadline)
	if n.metrics != nil {
		outcome := "accepted"
		if err != nil {
			outcome = "rejected"
		}
		n.metrics.IntentSubmissions.WithLabelValues(outcome).Inc()
		if err == nil {
			n.metrics.OpenIntents.Inc()
		}
	}
	return id, err
}

// CancelIntent withdraws an open intent on behalf of its owner.
func (n *Node) CancelIntent(id types.IntentID, caller types.Address) error {
	err := n.intents.Cancel(id, caller)
	if err == nil && n.metrics != nil {
		n.metrics.OpenIntents.Dec()
	}
	return err
}

// GetIntent returns a stored intent.
func (n *Node) GetIntent(id types.IntentID) (*types.Intent, bool) {
	return n.intents.Get(id)
}

// OpenIntents returns the live batch solvers should run against.
func (n *Node) OpenIntents() []*types.Intent {
	return n.intents.Valid(n.nowFn())
}

// Balance reports an account's free and reserved holdings in one asset.
func (n *Node) Balance(owner types.Address, asset types.AssetID) (free, reserved *big.Int) {
	return n.ledger.BalanceOf(owner, asset), n.ledger.ReservedOf(owner, asset)
}

// SubmitSolution validates a scored solution and offers it to the current
// block's auction slot. Validation happens outside the node lock; slot
// submission and candidate bookkeeping are atomic so the stored candidate
// always matches the slot's winner.
func (n *Node) SubmitSolution(who types.Address, solution *types.Solution) error {
	if solution == nil {
		return ErrInvalidSolution
	}
	start := time.Now()
	err := n.verifier.Validate(solution)
	if n.metrics != nil {
		n.metrics.ValidationSeconds.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if n.metrics != nil {
			n.metrics.SolutionSubmissions.WithLabelValues("invalid").Inc()
		}
		return errors.Join(ErrInvalidSolution, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.slot.Submit(who, len(solution.ResolvedIntents), solution.Score, n.slot.Block()); err != nil {
		if n.metrics != nil {
			n.metrics.SolutionSubmissions.WithLabelValues("outbid").Inc()
		}
		return err
	}
	n.candidate = solution.Clone()
	if n.metrics != nil {
		n.metrics.SolutionSubmissions.WithLabelValues("accepted").Inc()
	}
	n.logger.Info("solution accepted",
		"who", who.String(),
		"score", solution.Score,
		"block", n.slot.Block(),
		"intents", len(solution.ResolvedIntents))
	return nil
}

// runSolver computes a solution over the open batch and submits it under the
// node's own solver identity. Solver failures only log; external submissions
// keep the auction alive.
func (n *Node) runSolver() {
	batch := n.OpenIntents()
	if len(batch) == 0 {
		return
	}
	if len(batch) > n.maxPerRun {
		batch = batch[:n.maxPerRun]
	}
	solution, err := n.solver.Solve(batch)
	if err != nil {
		n.logger.Warn("solver run failed", "error", err)
		return
	}
	if len(solution.ResolvedIntents) == 0 {
		return
	}
	if err := n.SubmitSolution(SolverAddress(), solution); err != nil {
		if !errors.Is(err, auction.ErrScoreNotImproved) {
			n.logger.Warn("solver submission rejected", "error", err)
		}
	}
}

// CommitBlock closes the current block: the auction winner's solution is
// executed (or discarded if execution fails), expired intents are swept and
// the slot advances. Safe to call with no winner; the block still advances.
func (n *Node) CommitBlock() {
	n.mu.Lock()
	defer n.mu.Unlock()

	block := n.slot.Block()
	winner, ok := n.slot.Winner()
	candidate := n.candidate
	n.candidate = nil

	if ok && candidate != nil {
		start := time.Now()
		err := n.executor.Execute(candidate)
		if n.metrics != nil {
			n.metrics.ExecutionSeconds.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			n.emitter.Emit(events.SolutionDiscarded{Who: winner.Who, Block: block, Reason: err.Error()})
			if n.metrics != nil {
				n.metrics.DiscardedSolutions.Inc()
			}
			n.logger.Warn("winning solution discarded", "block", block, "who", winner.Who.String(), "error", err)
		} else {
			transfers, swaps := instructionCounts(candidate.Instructions)
			n.emitter.Emit(events.SolutionExecuted{
				Who:       winner.Who,
				Block:     block,
				Score:     winner.Score,
				Intents:   len(candidate.ResolvedIntents),
				Transfers: transfers,
				Swaps:     swaps,
			})
			if n.metrics != nil {
				n.metrics.ExecutedSolutions.Inc()
				n.metrics.ResolvedIntents.Add(float64(len(candidate.ResolvedIntents)))
			}
			n.logger.Info("solution executed", "block", block, "who", winner.Who.String(), "score", winner.Score)
		}
	} else {
		// No settlement this block; expired intents are still swept.
		if cleared, err := n.intents.ClearExpired(n.nowFn()); err != nil {
			n.logger.Error("expired intent sweep failed", "block", block, "error", err)
		} else if cleared > 0 && n.metrics != nil {
			n.metrics.ExpiredIntents.Add(float64(cleared))
		}
	}

	n.slot.Finalize()
	if n.metrics != nil {
		n.metrics.BlockHeight.Set(float64(n.slot.Block()))
		n.metrics.OpenIntents.Set(float64(len(n.intents.Valid(n.nowFn()))))
	}
}

// Run produces blocks on the given cadence until the context is cancelled.
func (n *Node) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n.solverEnabled {
				n.runSolver()
			}
			n.CommitBlock()
		}
	}
}

func instructionCounts(instructions []types.Instruction) (transfers, swaps int) {
	for _, instruction := range instructions {
		switch instruction.Kind {
		case types.InstructionTransferIn, types.InstructionTransferOut:
			transfers++
		case types.InstructionSwapExactIn, types.InstructionSwapExactOut:
			swaps++
		}
	}
	return transfers, swaps
}
