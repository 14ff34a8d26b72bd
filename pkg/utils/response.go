package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gem-backend/internal/apperrors"
	"gem-backend/internal/logger"
	"gem-backend/internal/models"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("empty body")

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Warn("failed to encode response", zap.Error(err))
	}
}

type errorBody struct {
	Error *apperrors.Error `json:"error"`
}

// Error writes err as {"error": {kind, message, details}}. Infrastructure
// failures are logged with their cause and shown to the client generically.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInfrastructure {
		logger.FromContext(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	JSON(w, apperrors.HTTPStatus(kind), errorBody{Error: apperrors.Public(err)})
}

// DecodeJSON reads a JSON body into v. Malformed bodies are validation errors.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &apperrors.Error{Kind: apperrors.KindValidation, Message: "request body is required", Err: errEmptyBody}
		}
		return apperrors.Validation("invalid request body").WithDetail("cause", err.Error())
	}
	return nil
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
// An empty body leaves v untouched, whether or not a length was declared.
func DecodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if err := DecodeJSON(r, v); !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

// ParseUUID parses a path or query value.
func ParseUUID(value, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid " + name).WithDetail(name, value)
	}
	return id, nil
}

// ParsePage reads ?page= and ?limit=. Bad values fall back to defaults.
func ParsePage(r *http.Request) models.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return models.Page{Page: page, Limit: limit}.Normalize()
}

// ParseBool reads a boolean query flag; anything unparsable is false.
func ParseBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
