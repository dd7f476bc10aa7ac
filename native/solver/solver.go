package solver

import (
	"errors"
	"math/big"
	"sort"

	"intentnet/core/types"
	"intentnet/native/bank"
	"intentnet/native/settlement"
	"intentnet/native/venues"
)

var errNoCandidates = errors.New("solver: no viable candidates")

// Config tunes the matching algorithm.
type Config struct {
	// DustThreshold is the smallest partial fill the solver will propose,
	// in amount-in units. Fills at or above this size keep rounded ratios
	// inside the verifier's 0.1% tolerance.
	DustThreshold *big.Int
	// SamePriceToleranceBps bounds disagreement between resolutions sharing
	// a (pair, direction) execution price.
	SamePriceToleranceBps int64
	// ReversePriceToleranceBps bounds disagreement between a direction's
	// price and its reverse direction's price.
	ReversePriceToleranceBps int64
	// MaxIterations caps the drop-and-retry feasibility loop.
	MaxIterations int
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		DustThreshold:            big.NewInt(1000),
		SamePriceToleranceBps:    10,
		ReversePriceToleranceBps: 100,
		MaxIterations:            16,
	}
}

// Solver computes candidate solutions. It is pure: it reads a ledger
// snapshot and the intent batch, mutates neither, and any number of
// instances may run concurrently against the same snapshot.
//
// Netting falls out of aggregation: each included intent resolves exactly at
// its requested amounts, per-asset inflow and outflow cancel inside the
// holding account, and only the net imbalance per asset is routed through
// venues. This makes direct matches venue-free, which is strictly better for
// both owners than paying venue fees.
type Solver struct {
	ledger   *bank.Ledger
	registry *venues.Registry
	hubAsset types.AssetID
	cfg      Config
}

// New creates a solver over the given ledger view and venue registry.
func New(ledger *bank.Ledger, registry *venues.Registry, hubAsset types.AssetID, cfg Config) *Solver {
	if cfg.DustThreshold == nil {
		cfg.DustThreshold = DefaultConfig().DustThreshold
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	return &Solver{ledger: ledger, registry: registry, hubAsset: hubAsset, cfg: cfg}
}

// candidate is one intent with its tentative fill.
type candidate struct {
	intent    *types.Intent
	amountIn  *big.Int
	amountOut *big.Int
}

// Solve produces a solution for the batch. An empty solution with zero score
// is a valid result meaning no improving settlement was found.
func (s *Solver) Solve(intents []*types.Intent) (*types.Solution, error) {
	prices := venues.NewSpotPriceProvider(s.registry, s.hubAsset)

	candidates := make([]*candidate, 0, len(intents))
	for _, intent := range intents {
		if intent == nil || intent.AmountIn == nil || intent.AmountOut == nil {
			continue
		}
		if intent.AmountIn.Sign() == 0 || intent.AmountOut.Sign() == 0 {
			continue
		}
		candidates = append(candidates, &candidate{
			intent:    intent,
			amountIn:  new(big.Int).Set(intent.AmountIn),
			amountOut: new(big.Int).Set(intent.AmountOut),
		})
	}

	for iteration := 0; iteration < s.cfg.MaxIterations; iteration++ {
		admitted := s.filterConsistent(candidates)
		if len(admitted) == 0 {
			return &types.Solution{}, nil
		}
		solution, err := s.assemble(admitted, prices)
		if err == nil {
			return solution, nil
		}
		// Infeasible batch: shrink or drop the least marketable candidate
		// and retry. Individual failures never fail the whole run.
		candidates = s.shrinkWorst(admitted, prices)
		if len(candidates) == 0 {
			return &types.Solution{}, nil
		}
	}
	return &types.Solution{}, nil
}

// filterConsistent applies the price-consistency pass: each (pair,
// direction) settles one execution price and resolutions disagreeing beyond
// tolerance are dropped.
func (s *Solver) filterConsistent(candidates []*candidate) []*candidate {
	check := newPriceConsistency(s.cfg.SamePriceToleranceBps, s.cfg.ReversePriceToleranceBps)
	var admitted []*candidate
	for _, c := range candidates {
		if check.admit(c.intent, c.amountIn, c.amountOut) {
			admitted = append(admitted, c)
		}
	}
	return admitted
}

// assemble builds and dry-runs a full solution from the candidate fills.
func (s *Solver) assemble(candidates []*candidate, prices venues.PriceProvider) (*types.Solution, error) {
	resolved := make([]types.ResolvedIntent, 0, len(candidates))
	assetIn := make(map[types.AssetID]*big.Int)
	assetOut := make(map[types.AssetID]*big.Int)
	type ownerAsset struct {
		owner types.Address
		asset types.AssetID
	}
	transfersIn := make(map[ownerAsset]*big.Int)
	transfersOut := make(map[ownerAsset]*big.Int)
	var transferInOrder, transferOutOrder []ownerAsset

	addTo := func(m map[ownerAsset]*big.Int, order *[]ownerAsset, key ownerAsset, amount *big.Int) {
		if existing, ok := m[key]; ok {
			existing.Add(existing, amount)
			return
		}
		m[key] = new(big.Int).Set(amount)
		*order = append(*order, key)
	}
	addAsset := func(m map[types.AssetID]*big.Int, asset types.AssetID, amount *big.Int) {
		if existing, ok := m[asset]; ok {
			existing.Add(existing, amount)
			return
		}
		m[asset] = new(big.Int).Set(amount)
	}

	for _, c := range candidates {
		resolved = append(resolved, types.ResolvedIntent{
			IntentID:  c.intent.ID,
			AmountIn:  new(big.Int).Set(c.amountIn),
			AmountOut: new(big.Int).Set(c.amountOut),
		})
		addTo(transfersIn, &transferInOrder, ownerAsset{c.intent.Owner, c.intent.AssetIn}, c.amountIn)
		addTo(transfersOut, &transferOutOrder, ownerAsset{c.intent.Owner, c.intent.AssetOut}, c.amountOut)
		addAsset(assetIn, c.intent.AssetIn, c.amountIn)
		addAsset(assetOut, c.intent.AssetOut, c.amountOut)
	}

	swaps, err := s.routeImbalances(assetIn, assetOut)
	if err != nil {
		return nil, err
	}

	instructions := make([]types.Instruction, 0, len(transferInOrder)+len(swaps)+len(transferOutOrder))
	for _, key := range transferInOrder {
		instructions = append(instructions, types.TransferIn(key.owner, key.asset, transfersIn[key]))
	}
	instructions = append(instructions, swaps...)
	for _, key := range transferOutOrder {
		instructions = append(instructions, types.TransferOut(key.owner, key.asset, transfersOut[key]))
	}

	if err := s.dryRun(instructions); err != nil {
		return nil, err
	}

	matched := settlement.MatchAmounts(assetIn, assetOut)
	score, err := settlement.Score(len(resolved), matched, prices)
	if err != nil {
		return nil, err
	}

	return &types.Solution{
		ResolvedIntents: resolved,
		Instructions:    instructions,
		Score:           score,
		CostEstimate:    settlement.EstimateCost(instructions),
	}, nil
}

// routeImbalances converts per-asset surpluses into the venue legs needed to
// cover per-asset deficits. Surpluses are sold into the hub asset only as
// far as deficits require; deficits are bought from the hub. Identical flows
// across intents are already aggregated, so at most one sell and one buy leg
// is emitted per asset.
func (s *Solver) routeImbalances(assetIn, assetOut map[types.AssetID]*big.Int) ([]types.Instruction, error) {
	scratch := s.ledger.Snapshot()
	registry := s.registry.WithLedger(scratch)
	router := venues.NewRouter(registry, s.hubAsset)

	assets := make(map[types.AssetID]struct{}, len(assetIn)+len(assetOut))
	for asset := range assetIn {
		assets[asset] = struct{}{}
	}
	for asset := range assetOut {
		assets[asset] = struct{}{}
	}
	ordered := make([]types.AssetID, 0, len(assets))
	for asset := range assets {
		ordered = append(ordered, asset)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var surpluses, deficits []types.AssetID
	surplus := make(map[types.AssetID]*big.Int)
	deficit := make(map[types.AssetID]*big.Int)
	for _, asset := range ordered {
		in := assetIn[asset]
		if in == nil {
			in = big.NewInt(0)
		}
		out := assetOut[asset]
		if out == nil {
			out = big.NewInt(0)
		}
		diff := new(big.Int).Sub(in, out)
		switch {
		case diff.Sign() > 0:
			surplus[asset] = diff
			if asset != s.hubAsset {
				surpluses = append(surpluses, asset)
			}
		case diff.Sign() < 0:
			deficit[asset] = diff.Neg(diff)
			if asset != s.hubAsset {
				deficits = append(deficits, asset)
			}
		}
	}

	// Hub needed to buy every deficit, plus any hub owed directly.
	hubNeeded := big.NewInt(0)
	buyQuotes := make(map[types.AssetID]*venues.Quote, len(deficits))
	for _, asset := range deficits {
		quote, err := router.QuoteInGivenOut(s.hubAsset, asset, deficit[asset])
		if err != nil {
			return nil, err
		}
		buyQuotes[asset] = quote
		hubNeeded.Add(hubNeeded, quote.AmountIn)
	}
	if hubDeficit := deficit[s.hubAsset]; hubDeficit != nil {
		hubNeeded.Add(hubNeeded, hubDeficit)
	}
	if hubSurplus := surplus[s.hubAsset]; hubSurplus != nil {
		hubNeeded.Sub(hubNeeded, hubSurplus)
	}

	var swaps []types.Instruction

	// Sell surpluses until the hub shortfall is covered. The last sell is
	// sized to the remaining need rather than the full surplus.
	remaining := new(big.Int).Set(hubNeeded)
	for _, asset := range surpluses {
		if remaining.Sign() <= 0 {
			break
		}
		available := surplus[asset]
		quote, err := router.QuoteOutGivenIn(asset, s.hubAsset, available)
		if err != nil {
			return nil, err
		}
		if quote.AmountOut.Cmp(remaining) > 0 {
			// Partial sell covers the rest.
			partial, err := router.QuoteInGivenOut(asset, s.hubAsset, remaining)
			if err == nil && partial.AmountIn.Cmp(available) <= 0 {
				quote = partial
			}
		}
		swaps = append(swaps, types.SwapExactIn(asset, s.hubAsset, quote.AmountIn, quote.AmountOut, quote.Route))
		remaining.Sub(remaining, quote.AmountOut)
	}
	if remaining.Sign() > 0 {
		return nil, errNoCandidates
	}

	for _, asset := range deficits {
		quote := buyQuotes[asset]
		swaps = append(swaps, types.SwapExactOut(s.hubAsset, asset, quote.AmountIn, quote.AmountOut, quote.Route))
	}
	return swaps, nil
}

// dryRun replays the instruction batch against a scratch snapshot the way
// the executor will, so an infeasible batch is caught before submission.
func (s *Solver) dryRun(instructions []types.Instruction) error {
	scratch := s.ledger.Snapshot()
	registry := s.registry.WithLedger(scratch)
	holding := settlement.HoldingAccount()

	for _, instruction := range instructions {
		switch instruction.Kind {
		case types.InstructionTransferIn:
			if err := scratch.Unreserve(instruction.Who, instruction.Asset, instruction.Amount); err != nil {
				return err
			}
			if err := scratch.Transfer(instruction.Who, holding, instruction.Asset, instruction.Amount); err != nil {
				return err
			}
		case types.InstructionTransferOut:
			if err := scratch.Transfer(holding, instruction.Who, instruction.Asset, instruction.Amount); err != nil {
				return err
			}
		case types.InstructionSwapExactIn:
			current := new(big.Int).Set(instruction.AmountIn)
			for i, hop := range instruction.Route {
				adapter, err := registry.Get(hop.Venue)
				if err != nil {
					return err
				}
				var limit *big.Int
				if i == len(instruction.Route)-1 {
					limit = instruction.AmountOut
				}
				out, err := adapter.ExecuteSell(holding, hop.AssetIn, hop.AssetOut, current, limit)
				if err != nil {
					return err
				}
				current = out
			}
		case types.InstructionSwapExactOut:
			hops := instruction.Route
			needed := new(big.Int).Set(instruction.AmountOut)
			outs := make([]*big.Int, len(hops)+1)
			outs[len(hops)] = needed
			for i := len(hops) - 1; i >= 0; i-- {
				adapter, err := registry.Get(hops[i].Venue)
				if err != nil {
					return err
				}
				in, err := adapter.InGivenOut(hops[i].AssetIn, hops[i].AssetOut, outs[i+1])
				if err != nil {
					return err
				}
				outs[i] = in
			}
			if outs[0].Cmp(instruction.AmountIn) > 0 {
				return venues.ErrLimitExceeded
			}
			for i, hop := range hops {
				adapter, err := registry.Get(hop.Venue)
				if err != nil {
					return err
				}
				if _, err := adapter.ExecuteBuy(holding, hop.AssetIn, hop.AssetOut, outs[i+1], outs[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// shrinkWorst halves the least marketable partial candidate or drops the
// least marketable non-partial one. Marketability is the requested ratio
// compared against hub spot prices: the intent demanding the most above
// market goes first.
func (s *Solver) shrinkWorst(candidates []*candidate, prices venues.PriceProvider) []*candidate {
	if len(candidates) == 0 {
		return nil
	}

	worstIdx := -1
	var worstScore *big.Rat
	for i, c := range candidates {
		inNum, inDen, errIn := prices.HubPrice(c.intent.AssetIn)
		outNum, outDen, errOut := prices.HubPrice(c.intent.AssetOut)
		if errIn != nil || errOut != nil {
			worstIdx = i
			break
		}
		// demanded value / offered value in hub terms
		offered := new(big.Rat).SetFrac(new(big.Int).Mul(c.amountIn, inNum), inDen)
		demanded := new(big.Rat).SetFrac(new(big.Int).Mul(c.amountOut, outNum), outDen)
		if offered.Sign() == 0 {
			worstIdx = i
			break
		}
		ratio := new(big.Rat).Quo(demanded, offered)
		if worstScore == nil || ratio.Cmp(worstScore) > 0 {
			worstScore = ratio
			worstIdx = i
		}
	}
	if worstIdx < 0 {
		worstIdx = 0
	}

	worst := candidates[worstIdx]
	if worst.intent.Partial {
		half := new(big.Int).Rsh(worst.amountIn, 1)
		if half.Cmp(s.cfg.DustThreshold) >= 0 {
			worst.amountIn = half
			// Keep the fill on the intent's requested ratio, rounding the
			// out side up so the realized ratio never drops below it.
			worst.amountOut = ceilDiv(new(big.Int).Mul(half, worst.intent.AmountOut), worst.intent.AmountIn)
			return candidates
		}
	}
	return append(candidates[:worstIdx], candidates[worstIdx+1:]...)
}

func ceilDiv(numerator, denominator *big.Int) *big.Int {
	quotient, remainder := new(big.Int).QuoRem(numerator, denominator, new(big.Int))
	if remainder.Sign() > 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient
}
