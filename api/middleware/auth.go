package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/otabekov/orderdesk-backend/api/responses"
	pkgerrors "github.com/otabekov/orderdesk-backend/pkg/errors"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
)

// StaticBearer guards the desk API with a single shared token. An empty
// token disables the check; dev only.
func StaticBearer(token string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or missing bearer token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
