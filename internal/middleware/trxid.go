package middleware

import (
	"net/http"

	"github.com/BradenHooton/sessionauth/pkg/trxid"
)

// TrxIDHeader echoes the transaction id of every response
const TrxIDHeader = "X-Trx-Id"

// TrxID stamps each request with a fresh TID transaction id
func TrxID(gen *trxid.Generator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := gen.New(trxid.DefaultPrefix)
			w.Header().Set(TrxIDHeader, id)
			next.ServeHTTP(w, r.WithContext(trxid.NewContext(r.Context(), id)))
		})
	}
}
