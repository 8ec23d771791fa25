// Package authmw guards the API with static bearer tokens.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
)

const bearerPrefix = "Bearer "

// ParseTokens splits a comma-separated token list, dropping blanks. Several
// tokens let operators rotate without downtime.
func ParseTokens(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// BearerToken returns middleware that accepts a request only when its
// Authorization header carries one of tokens. Comparison is constant-time.
func BearerToken(logger log.Logger, tokens ...string) func(http.Handler) http.Handler {
	if len(tokens) == 0 {
		panic(xerrors.New("at least one api token is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	expected := make([][]byte, 0, len(tokens))
	for _, t := range tokens {
		expected = append(expected, []byte(t))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, bearerPrefix) {
				reject(w, "missing or malformed authorization header")
				return
			}

			if !matchAny([]byte(auth[len(bearerPrefix):]), expected) {
				logger.Warn(r.Context(), "rejected api request with invalid token",
					"method", r.Method,
					"path", r.URL.Path,
				)
				reject(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchAny compares against every token so timing does not reveal which one matched.
func matchAny(got []byte, expected [][]byte) bool {
	ok := 0
	for _, e := range expected {
		ok |= subtle.ConstantTimeCompare(got, e)
	}
	return ok == 1
}

func reject(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="triagebot"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
