package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/workspace-sync/internal/api/response"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		response.BadRequest(w, err.Error())
		return false
	}

	return true
}
