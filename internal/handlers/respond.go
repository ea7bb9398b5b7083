package handlers

import (
	"net/http"

	"github.com/BradenHooton/sessionauth/internal/models"
	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
	"github.com/BradenHooton/sessionauth/pkg/trxid"
)

func trxID(r *http.Request) string {
	return trxid.FromContext(r.Context())
}

func writeOK(w http.ResponseWriter, r *http.Request, message string, data any) {
	pkghttp.WriteSuccess(w, http.StatusOK, message, data, trxID(r))
}

// writeServiceError renders a service failure with the status and message it carries
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	pkghttp.WriteError(w, models.StatusOf(err), models.MessageOf(err), trxID(r))
}

func toResponses(users []*models.User) []*models.UserResponse {
	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToResponse())
	}
	return out
}
