package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cardledger/crypto"
	"cardledger/native/lending"

	"github.com/go-chi/chi/v5"
)

type server struct {
	engine *lending.Engine
	state  *lending.KVState
	config lending.Config
}

type lendRequest struct {
	Category uint8  `json:"category"`
	TokenID  uint64 `json:"tokenId"`
	Power    uint32 `json:"power"`
}

type borrowRequest struct {
	Category       uint8  `json:"category"`
	TokenID        uint64 `json:"tokenId"`
	PowerRequested uint32 `json:"powerRequested"`
}

type positionRequest struct {
	Category uint8  `json:"category"`
	TokenID  uint64 `json:"tokenId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps a sentinel engine error to an HTTP status. Unrecognized
// errors fall back to 500: the engine never returns a partial failure, so
// anything not in this table is an unexpected internal condition.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lending.ErrInsufficientPower),
		errors.Is(err, lending.ErrInsufficientCollateral),
		errors.Is(err, lending.ErrInsufficientOffer),
		errors.Is(err, lending.ErrInsufficientUserPower),
		errors.Is(err, lending.ErrExceedsMaxBorrow),
		errors.Is(err, lending.ErrReserveExhausted),
		errors.Is(err, lending.ErrBadCategory),
		errors.Is(err, lending.ErrCardLocked),
		errors.Is(err, lending.ErrCardNotLocked),
		errors.Is(err, lending.ErrPositionExists):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lending.ErrCardNotFound), errors.Is(err, lending.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, lending.ErrNotAuthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) handleLend(w http.ResponseWriter, r *http.Request) {
	var req lendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller := callerFromContext(r.Context())
	if err := s.engine.Lend(caller, lending.Category(req.Category), req.TokenID, req.Power); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller := callerFromContext(r.Context())
	if err := s.engine.Borrow(caller, lending.Category(req.Category), req.TokenID, req.PowerRequested); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRepay(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller := callerFromContext(r.Context())
	if err := s.engine.Repay(caller, lending.Category(req.Category), req.TokenID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller := callerFromContext(r.Context())
	if err := s.engine.Withdraw(caller, lending.Category(req.Category), req.TokenID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type positionResponse struct {
	Owner                string `json:"owner"`
	Category             uint8  `json:"category"`
	TokenID              uint64 `json:"tokenId"`
	Kind                 string `json:"kind"`
	PrincipalNet         uint32 `json:"principalNet,omitempty"`
	Reserve              uint64 `json:"reserve,omitempty"`
	CollateralPower      uint32 `json:"collateralPower,omitempty"`
	LastLiquidationIndex uint64 `json:"lastLiquidationIndex,omitempty"`
}

func (s *server) handlePosition(w http.ResponseWriter, r *http.Request) {
	ownerStr := chi.URLParam(r, "owner")
	categoryStr := chi.URLParam(r, "category")
	tokenIDStr := chi.URLParam(r, "tokenID")

	owner, err := crypto.DecodeAddress(ownerStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	categoryVal, err := strconv.ParseUint(categoryStr, 10, 8)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := strconv.ParseUint(tokenIDStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category := lending.Category(categoryVal)

	var ownerBytes [20]byte
	copy(ownerBytes[:], owner.Bytes())

	if lendingPos, err := s.state.GetLending(category, tokenID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	} else if lendingPos != nil {
		writeJSON(w, http.StatusOK, positionResponse{
			Owner:        ownerStr,
			Category:     categoryVal8(category),
			TokenID:      tokenID,
			Kind:         "lending",
			PrincipalNet: lendingPos.PrincipalNet,
		})
		return
	}

	if borrowingPos, err := s.engine.Touch(category, tokenID); err != nil && !errors.Is(err, lending.ErrPositionNotFound) {
		writeError(w, http.StatusInternalServerError, err)
		return
	} else if err == nil {
		writeJSON(w, http.StatusOK, positionResponse{
			Owner:                ownerStr,
			Category:             categoryVal8(category),
			TokenID:              tokenID,
			Kind:                 "borrowing",
			Reserve:              borrowingPos.Reserve,
			CollateralPower:      borrowingPos.CollateralPower,
			LastLiquidationIndex: borrowingPos.LastLiquidationIndex,
		})
		return
	}

	writeError(w, http.StatusNotFound, lending.ErrPositionNotFound)
}

func categoryVal8(c lending.Category) uint8 { return uint8(c) }

type apyResponse struct {
	Apy uint64 `json:"apy"`
}

func (s *server) handleAPY(w http.ResponseWriter, r *http.Request) {
	pool, err := s.state.GetPool()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, apyResponse{Apy: pool.Apy(s.config.ApyAlpha)})
}
