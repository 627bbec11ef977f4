package mux

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

// json is shared by the response writers and the compiled route table.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// ResponseJSON encodes v as JSON and writes it to the response with the given
// status code. The Content-Type header is set to "application/json".
// If encoding fails, an HTTP 500 Internal Server Error is written instead.
func ResponseJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(body, '\n'))
}

// BindJSON decodes the request body as JSON into v.
// By default the decoder rejects unknown fields that do not map to exported
// struct fields. Pass false to allow unknown fields.
// Exactly one JSON value must be present in the body; trailing data is an error.
func BindJSON(r *http.Request, v any, allowUnknownFields ...bool) error {
	dec := json.NewDecoder(r.Body)

	if len(allowUnknownFields) == 0 || !allowUnknownFields[0] {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}

	if dec.More() {
		return errors.New("unexpected trailing data after JSON value")
	}

	return nil
}
