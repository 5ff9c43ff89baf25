package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"cardledger/crypto"
	"cardledger/native/card"
	"cardledger/native/lending"
	"cardledger/native/pot"
	"cardledger/native/rewards"
	"cardledger/storage"
)

func newTestServer(t *testing.T) (*server, *card.Store, [20]byte, crypto.Address) {
	t.Helper()
	cfg := lending.Config{
		FeeLendBps:       100,
		FeeBorrowBps:     100,
		MinReserveBps:    500,
		SafetyBufferBps:  500,
		TMaxHours:        720,
		ApyAlpha:         10,
		TerryPerLending:  10,
		TerryPerBorrow:   10,
		TerryPerRepay:    10,
		TerryPerWithdraw: 10,
		HawAiPercentage:  5,
	}
	state := lending.NewKVState(storage.NewMemDB())
	cards := card.NewStore(storage.NewMemDB())
	engine := lending.NewEngine(cfg)
	engine.SetState(state)
	engine.SetCards(cards)
	engine.SetPot(pot.NewAccumulator(storage.NewMemDB()))
	engine.SetRewards(rewards.NewMinter(storage.NewMemDB()))

	var callerBytes [20]byte
	callerBytes[19] = 1
	callerAddr := crypto.MustNewAddress(crypto.PlayerPrefix, callerBytes[:])

	require.NoError(t, cards.WriteCard(callerBytes, lending.CategoryResource, 1, lending.Card{Power: 1000}))

	return &server{engine: engine, state: state, config: cfg}, cards, callerBytes, callerAddr
}

func withCaller(r *http.Request, addr crypto.Address) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), callerCtxKey, addr))
}

func TestHandleLendSucceeds(t *testing.T) {
	srv, _, _, callerAddr := newTestServer(t)
	body, _ := json.Marshal(lendRequest{Category: uint8(lending.CategoryResource), TokenID: 1, Power: 500})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/v1/lend", bytes.NewReader(body)), callerAddr)
	rec := httptest.NewRecorder()

	srv.handleLend(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleLendRejectsBadCategoryWithUnprocessableEntity(t *testing.T) {
	srv, cards, callerBytes, callerAddr := newTestServer(t)
	require.NoError(t, cards.WriteCard(callerBytes, lending.CategorySkill, 2, lending.Card{Power: 500}))

	body, _ := json.Marshal(lendRequest{Category: uint8(lending.CategorySkill), TokenID: 2, Power: 500})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/v1/lend", bytes.NewReader(body)), callerAddr)
	rec := httptest.NewRecorder()

	srv.handleLend(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Error)
}

func TestHandleLendRejectsMalformedBody(t *testing.T) {
	srv, _, _, callerAddr := newTestServer(t)
	req := withCaller(httptest.NewRequest(http.MethodPost, "/v1/lend", bytes.NewReader([]byte("not json"))), callerAddr)
	rec := httptest.NewRecorder()

	srv.handleLend(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAPYReturnsPoolApy(t *testing.T) {
	srv, _, _, callerAddr := newTestServer(t)
	req := withCaller(httptest.NewRequest(http.MethodGet, "/v1/apy", nil), callerAddr)
	rec := httptest.NewRecorder()

	srv.handleAPY(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp apyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.GreaterOrEqual(t, resp.Apy, lending.ApyMin)
}

func TestHandlePositionReturnsLendingKindAfterLend(t *testing.T) {
	srv, _, _, callerAddr := newTestServer(t)
	lendBody, _ := json.Marshal(lendRequest{Category: uint8(lending.CategoryResource), TokenID: 1, Power: 500})
	lendReq := withCaller(httptest.NewRequest(http.MethodPost, "/v1/lend", bytes.NewReader(lendBody)), callerAddr)
	lendRec := httptest.NewRecorder()
	srv.handleLend(lendRec, lendReq)
	require.Equal(t, http.StatusOK, lendRec.Code)

	router := chi.NewRouter()
	router.Get("/v1/positions/{owner}/{category}/{tokenID}", srv.handlePosition)

	url := "/v1/positions/" + callerAddr.String() + "/0/1"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp positionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "lending", resp.Kind)
}

func TestHandlePositionRejectsBadOwnerAddress(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	router := chi.NewRouter()
	router.Get("/v1/positions/{owner}/{category}/{tokenID}", srv.handlePosition)

	req := httptest.NewRequest(http.MethodGet, "/v1/positions/not-an-address/0/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
