package types

// Solution is a solver's proposed settlement of a batch of intents: the
// resolved amounts it claims per intent plus the ordered instruction list
// that realizes them. A solution is an immutable value owned by the
// submission that carries it; it never outlives the block it targets unless
// it wins the auction, in which case the executor consumes it.
type Solution struct {
	ResolvedIntents []ResolvedIntent
	Instructions    []Instruction
	Score           uint64
	CostEstimate    uint64
}

// Empty reports whether the solution settles nothing. An empty solution is a
// valid solver result meaning no improving settlement was found; the auction
// rejects it at submission.
func (s *Solution) Empty() bool {
	return s == nil || len(s.ResolvedIntents) == 0
}

// Clone returns a deep copy of the solution.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	clone := &Solution{Score: s.Score, CostEstimate: s.CostEstimate}
	if s.ResolvedIntents != nil {
		clone.ResolvedIntents = make([]ResolvedIntent, len(s.ResolvedIntents))
		for i, r := range s.ResolvedIntents {
			clone.ResolvedIntents[i] = r.Clone()
		}
	}
	if s.Instructions != nil {
		clone.Instructions = make([]Instruction, len(s.Instructions))
		for i, in := range s.Instructions {
			clone.Instructions[i] = in.Clone()
		}
	}
	return clone
}
