package converthttp

import (
	"encoding/json"
	"net/http"

	errorslib "github.com/goliatone/go-errors"

	"github.com/goliatone/go-docexport/convert"
)

// storedResponse describes a PDF kept in the store instead of downloaded.
type storedResponse struct {
	Key   string `json:"key"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	ge := convert.AsGoError(err)
	writeJSON(w, statusForError(ge), errorResponse{
		Error: errorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.TextCode {
	case string(convert.KindBackendNotFound):
		return http.StatusNotImplemented
	case string(convert.KindLoadFailed):
		return http.StatusUnprocessableEntity
	case string(convert.KindExportFailed):
		return http.StatusInternalServerError
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryOperation:
		if err.TextCode == string(convert.KindCanceled) {
			return http.StatusConflict
		}
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
