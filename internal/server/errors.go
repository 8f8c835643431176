package server

import (
	"net/http"

	apperrors "github.com/stacman/stacman/internal/errors"
)

// writeError is the gateway's only error exit. Plain errors become
// INTERNAL_ERROR envelopes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
