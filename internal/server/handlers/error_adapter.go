package handlers

import (
	"net/http"

	apperrors "github.com/stacman/stacman/internal/errors"
)

// ErrorResponder writes an error response for a failed probe.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

var errorResponder ErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder routes probe failures through the server's error
// path. Nil restores the default envelope writer.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	errorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponder(w, r, err)
}
