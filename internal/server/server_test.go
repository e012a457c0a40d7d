package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slipsentinel/internal/config"
	"slipsentinel/internal/model"
)

type stubEngine struct {
	rec      model.Recommendation
	multiHop model.MultiHopResult
	err      error
}

func (s *stubEngine) Estimate(_ context.Context, _ uint64, _, _ string, _ *big.Int, _ string) (model.Recommendation, error) {
	if s.err != nil {
		return model.Recommendation{}, s.err
	}
	return s.rec, nil
}

func (s *stubEngine) EstimateMultiHop(_ context.Context, _ uint64, _ []model.TokenPair, _ *big.Int) (model.MultiHopResult, error) {
	if s.err != nil {
		return model.MultiHopResult{}, s.err
	}
	return s.multiHop, nil
}

type stubLister struct {
	routes []model.Route
	err    error
}

func (s *stubLister) FindAllRoutes(_ context.Context, _ uint64, _, _ string) ([]model.Route, error) {
	return s.routes, s.err
}

func newTestServer(engine Engine, lister RouteLister) *Server {
	return New(engine, lister, config.DefaultRegistry(), nil)
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleEstimateOK(t *testing.T) {
	engine := &stubEngine{rec: model.Recommendation{
		MinSafeSlipBps: 180,
		RouteUsed:      "uniswap_v2",
		PairAddress:    "0x3333333333333333333333333333333333333333",
	}}
	srv := newTestServer(engine, &stubLister{})

	rec := postJSON(t, srv.Handler(), "/slippage/estimate", map[string]interface{}{
		"token_in":  "0x1111111111111111111111111111111111111111",
		"token_out": "0x2222222222222222222222222222222222222222",
		"amount_in": "1000000000000000000",
		"chain":     1,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp estimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 180, resp.MinSafeSlipBps)
	assert.Equal(t, "uniswap_v2", resp.RouteUsed)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHandleEstimateInvalidAmount(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubLister{})

	rec := postJSON(t, srv.Handler(), "/slippage/estimate", map[string]interface{}{
		"token_in":  "0x1111111111111111111111111111111111111111",
		"token_out": "0x2222222222222222222222222222222222222222",
		"amount_in": "not-a-number",
		"chain":     1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEstimateErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid_chain", fmt.Errorf("chain 999: %w", model.ErrInvalidChain), http.StatusBadRequest},
		{"no_route", fmt.Errorf("probe: %w", model.ErrNoRoute), http.StatusNotFound},
		{"reserves_unavailable", fmt.Errorf("read: %w", model.ErrReservesUnavailable), http.StatusBadGateway},
		{"internal", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&stubEngine{err: tc.err}, &stubLister{})
			rec := postJSON(t, srv.Handler(), "/slippage/estimate", map[string]interface{}{
				"token_in":  "0x1111111111111111111111111111111111111111",
				"token_out": "0x2222222222222222222222222222222222222222",
				"amount_in": "100",
				"chain":     1,
			})
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHandleEstimateRequiresPost(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubLister{})

	req := httptest.NewRequest(http.MethodGet, "/slippage/estimate", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleMultiHop(t *testing.T) {
	engine := &stubEngine{multiHop: model.MultiHopResult{
		TotalSlippageBps: 360,
		NumHops:          2,
		HopDetails: []model.HopDetail{
			{SlippageBps: 180},
			{SlippageBps: 180},
		},
	}}
	srv := newTestServer(engine, &stubLister{})

	rec := postJSON(t, srv.Handler(), "/slippage/multihop", map[string]interface{}{
		"chain":     1,
		"amount_in": "1000",
		"path": []map[string]string{
			{"token_in": "0x11", "token_out": "0x22"},
			{"token_in": "0x22", "token_out": "0x33"},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.MultiHopResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 360, resp.TotalSlippageBps)
	assert.Equal(t, 2, resp.NumHops)
}

func TestHandleMultiHopEmptyPath(t *testing.T) {
	srv := newTestServer(&stubEngine{err: model.ErrEmptyPath}, &stubLister{})

	rec := postJSON(t, srv.Handler(), "/slippage/multihop", map[string]interface{}{
		"chain":     1,
		"amount_in": "1000",
		"path":      []map[string]string{},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.ErrEmptyPath.Error(), resp["error"])
}

func TestHandleRoutes(t *testing.T) {
	lister := &stubLister{routes: []model.Route{
		{ExchangeName: "uniswap_v2", PairAddress: "0x01"},
		{ExchangeName: "sushiswap", PairAddress: "0x02"},
	}}
	srv := newTestServer(&stubEngine{}, lister)

	req := httptest.NewRequest(http.MethodGet, "/routes?chain=1&token_in=0x11&token_out=0x22", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Routes []model.Route `json:"routes"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "uniswap_v2", resp.Routes[0].ExchangeName)
}

func TestHandleRoutesInvalidChainParam(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubLister{})

	req := httptest.NewRequest(http.MethodGet, "/routes?chain=abc", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubLister{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHandleChains(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubLister{})

	req := httptest.NewRequest(http.MethodGet, "/chains", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Chains []chainEntry `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Chains, 7)
	assert.Equal(t, uint64(1), resp.Chains[0].ChainID)
	assert.Equal(t, "Ethereum", resp.Chains[0].Name)
	assert.Contains(t, resp.Chains[0].Exchanges, "uniswap_v2")
}
