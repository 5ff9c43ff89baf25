package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"cardledger/crypto"
	"github.com/golang-jwt/jwt/v5"
)

type callerClaims struct {
	Address string `json:"addr"`
	jwt.RegisteredClaims
}

type ctxKey int

const callerCtxKey ctxKey = iota

// callerFromContext returns the 20-byte address authenticated by the JWT
// middleware. Outside a request handled by requireAuth no address is in
// the context, and it returns the zero address.
func callerFromContext(ctx context.Context) [20]byte {
	addr, _ := ctx.Value(callerCtxKey).(crypto.Address)
	var out [20]byte
	copy(out[:], addr.Bytes())
	return out
}

// requireAuth validates a bearer JWT signed with the daemon's shared secret
// and resolves its "addr" claim into the caller's 20-byte address, the
// principal every engine operation authorizes against.
func requireAuth(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := &callerClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return key, nil
			})
			if err != nil || !parsed.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			addr, err := crypto.DecodeAddress(claims.Address)
			if err != nil {
				http.Error(w, "invalid addr claim", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), callerCtxKey, addr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loginDigest is the fixed digest a player signs to prove control of their
// address at login. It carries no nonce: replay protection is explicitly
// out of scope (the policy half of authentication, per the Non-goals), only
// the signature-recovery mechanism itself is specified here.
func loginDigest(addr crypto.Address) [32]byte {
	return sha256.Sum256(append([]byte("cardledgerd-login:"), addr.Bytes()...))
}

type loginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// loginHandler implements POST /v1/auth/login: it recovers the signer from
// the submitted signature and, if it matches the claimed address, mints a
// short-lived JWT carrying that address as its "addr" claim.
func loginHandler(secret string) http.HandlerFunc {
	key := []byte(secret)
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		claimed, err := crypto.DecodeAddress(req.Address)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sig, err := hex.DecodeString(req.Signature)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		recovered, err := crypto.RecoverAddress(loginDigest(claimed), sig)
		if err != nil || recovered.String() != claimed.String() {
			http.Error(w, "signature does not match claimed address", http.StatusUnauthorized)
			return
		}

		claims := callerClaims{
			Address: claimed.String(),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString(key)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{Token: signed})
	}
}
