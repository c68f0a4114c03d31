// Package handler contains the JSON HTTP handlers for the marketplace.
//
// Handlers decode the request, read the caller from the auth context and
// delegate to a service. Authorization lives in the services; handlers only
// translate errors into responses.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/google/uuid"

	"github.com/DukeRupert/tradeslink/internal/domain"
)

// MaxJSONBodyBytes caps JSON request bodies.
const MaxJSONBodyBytes = 1 << 20

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *form.Decoder {
	d := form.NewDecoder()
	d.RegisterCustomTypeFunc(func(vals []string) (interface{}, error) {
		return uuid.Parse(vals[0])
	}, uuid.UUID{})
	return d
}

// decodeJSON reads a single JSON object into dst. Unknown fields are rejected
// so typos in action names fail loudly.
func decodeJSON(r *http.Request, op string, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return domain.Invalid(op, "Content-Type must be application/json")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body must not be empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.Invalid(op, "Request body contains malformed JSON")
		case errors.As(err, &typeErr):
			return domain.NewValidationError(op, typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return domain.Invalid(op, "Unknown field "+field)
		}
		return domain.Invalid(op, "Request body could not be decoded")
	}
	if dec.More() {
		return domain.Invalid(op, "Request body must contain a single JSON object")
	}
	return nil
}

// decodeQuery binds URL query parameters onto dst using its form tags.
func decodeQuery(r *http.Request, op string, dst any) error {
	if err := queryDecoder.Decode(dst, r.URL.Query()); err != nil {
		return domain.Invalid(op, "Invalid query parameters")
	}
	return nil
}

// pathID parses a UUID path value. Malformed ids are reported as not found,
// the same as ids that do not exist.
func pathID(r *http.Request, op, name, resource string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NotFound(op, resource, raw)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// actionRequest is the body of the PATCH endpoints that drive a status
// transition.
type actionRequest struct {
	Action string `json:"action"`
}
