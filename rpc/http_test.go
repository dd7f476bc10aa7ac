package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"intentnet/core"
	"intentnet/core/types"
	"intentnet/native/auction"
	"intentnet/native/intents"
)

type fakeNode struct {
	intents    map[types.IntentID]*types.Intent
	nextID     types.IntentID
	submitErr  error
	cancelled  []types.IntentID
	solutions  []*types.Solution
	solutionBy []types.Address
	solErr     error
	block      uint64
	winner     *auction.Winner
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		intents: make(map[types.IntentID]*types.Intent),
		nextID:  types.NewIntentID(2_000, 1),
		block:   7,
	}
}

func (f *fakeNode) SubmitIntent(owner types.Address, assetIn, assetOut types.AssetID, amountIn, amountOut *big.Int, swapType types.SwapType, partial bool, deadline int64) (types.IntentID, error) {
	if f.submitErr != nil {
		return types.IntentID{}, f.submitErr
	}
	id := f.nextID
	f.intents[id] = &types.Intent{
		ID: id, Owner: owner,
		AssetIn: assetIn, AssetOut: assetOut,
		AmountIn: amountIn, AmountOut: amountOut,
		SwapType: swapType, Partial: partial, Deadline: deadline,
	}
	return id, nil
}

func (f *fakeNode) CancelIntent(id types.IntentID, caller types.Address) error {
	intent, ok := f.intents[id]
	if !ok {
		return intents.ErrIntentNotFound
	}
	if intent.Owner != caller {
		return intents.ErrNotOwner
	}
	delete(f.intents, id)
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeNode) GetIntent(id types.IntentID) (*types.Intent, bool) {
	intent, ok := f.intents[id]
	return intent, ok
}

func (f *fakeNode) OpenIntents() []*types.Intent {
	out := make([]*types.Intent, 0, len(f.intents))
	for _, intent := range f.intents {
		out = append(out, intent)
	}
	return out
}

func (f *fakeNode) SubmitSolution(who types.Address, solution *types.Solution) error {
	if f.solErr != nil {
		return f.solErr
	}
	f.solutions = append(f.solutions, solution)
	f.solutionBy = append(f.solutionBy, who)
	f.winner = &auction.Winner{Who: who, Score: solution.Score}
	return nil
}

func (f *fakeNode) Balance(types.Address, types.AssetID) (*big.Int, *big.Int) {
	return big.NewInt(42), big.NewInt(7)
}

func (f *fakeNode) Block() uint64 { return f.block }

func (f *fakeNode) Winner() (auction.Winner, bool) {
	if f.winner == nil {
		return auction.Winner{}, false
	}
	return *f.winner, true
}

func newTestServer(node Node) *Server {
	return NewServer(node, nil, nil)
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

const ownerHex = "0x0101010101010101010101010101010101010101"

func TestSubmitIntentEndpoint(t *testing.T) {
	node := newFakeNode()
	server := newTestServer(node)

	rec := doJSON(t, server, http.MethodPost, "/v1/intents", submitIntentRequest{
		Owner:     ownerHex,
		AssetIn:   1,
		AssetOut:  2,
		AmountIn:  "100000",
		AmountOut: "90000",
		SwapType:  "exactIn",
		Partial:   true,
		Deadline:  2_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "2000-1", resp["id"])

	stored := node.intents[types.NewIntentID(2_000, 1)]
	require.NotNil(t, stored)
	require.Equal(t, types.SwapTypeExactIn, stored.SwapType)
	require.True(t, stored.Partial)
	require.Zero(t, stored.AmountIn.Cmp(big.NewInt(100_000)))
}

func TestSubmitIntentRejectsBadInput(t *testing.T) {
	server := newTestServer(newFakeNode())

	cases := []struct {
		name   string
		mutate func(*submitIntentRequest)
	}{
		{"bad owner", func(r *submitIntentRequest) { r.Owner = "nope" }},
		{"bad amount", func(r *submitIntentRequest) { r.AmountIn = "1.5" }},
		{"negative amount", func(r *submitIntentRequest) { r.AmountOut = "-1" }},
		{"bad swap type", func(r *submitIntentRequest) { r.SwapType = "market" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := submitIntentRequest{
				Owner: ownerHex, AssetIn: 1, AssetOut: 2,
				AmountIn: "100", AmountOut: "90",
				SwapType: "exactIn", Deadline: 2_000,
			}
			tc.mutate(&req)
			rec := doJSON(t, server, http.MethodPost, "/v1/intents", req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetAndCancelIntentEndpoints(t *testing.T) {
	node := newFakeNode()
	server := newTestServer(node)
	owner, err := types.ParseAddress(ownerHex)
	require.NoError(t, err)
	id, err := node.SubmitIntent(owner, 1, 2, big.NewInt(100), big.NewInt(90), types.SwapTypeExactIn, false, 2_000)
	require.NoError(t, err)

	rec := doJSON(t, server, http.MethodGet, "/v1/intents/"+id.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var payload intentPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, ownerHex, payload.Owner)
	require.Equal(t, "100", payload.AmountIn)

	rec = doJSON(t, server, http.MethodGet, "/v1/intents/9999-9", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/intents/"+id.String()+"/cancel", cancelIntentRequest{Owner: "0x0202020202020202020202020202020202020202"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, server, http.MethodPost, "/v1/intents/"+id.String()+"/cancel", cancelIntentRequest{Owner: ownerHex})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, node.cancelled, 1)
}

func TestSubmitSolutionEndpoint(t *testing.T) {
	node := newFakeNode()
	server := newTestServer(node)

	req := submitSolutionRequest{
		Who: ownerHex,
		Resolved: []resolvedIntentPayload{
			{IntentID: "2000-1", AmountIn: "100000", AmountOut: "90000"},
		},
		Instructions: []instructionPayload{
			{Kind: "transferIn", Who: ownerHex, Asset: 1, Amount: "100000"},
			{Kind: "swapExactIn", AssetIn: 1, AssetOut: 0, AmountIn: "100000", AmountOut: "90000", Route: []routeHopPayload{{Venue: "xyk-a", AssetIn: 1, AssetOut: 0}}},
			{Kind: "transferOut", Who: ownerHex, Asset: 0, Amount: "90000"},
		},
		Score:        1_000_000,
		CostEstimate: 7,
	}
	rec := doJSON(t, server, http.MethodPost, "/v1/solutions", req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, node.solutions, 1)
	solution := node.solutions[0]
	require.Len(t, solution.ResolvedIntents, 1)
	require.Len(t, solution.Instructions, 3)
	require.Equal(t, types.InstructionSwapExactIn, solution.Instructions[1].Kind)
	require.Equal(t, uint64(1_000_000), solution.Score)
}

func TestSubmitSolutionStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"outbid", auction.ErrScoreNotImproved, http.StatusConflict},
		{"invalid", core.ErrInvalidSolution, http.StatusUnprocessableEntity},
		{"empty", auction.ErrEmptySolution, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			node := newFakeNode()
			node.solErr = tc.err
			server := newTestServer(node)
			rec := doJSON(t, server, http.MethodPost, "/v1/solutions", submitSolutionRequest{Who: ownerHex})
			require.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestAuctionAndBalanceEndpoints(t *testing.T) {
	node := newFakeNode()
	node.winner = &auction.Winner{Who: types.BytesToAddress([]byte{0x09}), Score: 55}
	server := newTestServer(node)

	rec := doJSON(t, server, http.MethodGet, "/v1/auction", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status auctionPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, uint64(7), status.Block)
	require.Equal(t, uint64(55), status.Score)

	rec = doJSON(t, server, http.MethodGet, "/v1/balances/"+ownerHex+"/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balance balancePayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &balance))
	require.Equal(t, "42", balance.Free)
	require.Equal(t, "7", balance.Reserved)
}

func TestHealthEndpointAndRequestID(t *testing.T) {
	server := newTestServer(newFakeNode())
	rec := doJSON(t, server, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRateLimiterBlocksBursts(t *testing.T) {
	node := newFakeNode()
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 60, Burst: 2})
	server := NewServer(node, nil, limiter)

	body := submitIntentRequest{
		Owner: ownerHex, AssetIn: 1, AssetOut: 2,
		AmountIn: "100", AmountOut: "90",
		SwapType: "exactIn", Deadline: 2_000,
	}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := doJSON(t, server, http.MethodPost, "/v1/intents", body)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, http.StatusCreated, codes[0])
	require.Equal(t, http.StatusCreated, codes[1])
	require.Equal(t, http.StatusTooManyRequests, codes[2])

	// Reads bypass the limiter.
	rec := doJSON(t, server, http.MethodGet, "/v1/intents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
