package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-toko-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// envelope: {code, status, data} saat sukses, {code, status, errors} saat gagal.
type envelope struct {
	Code      int                 `json:"code"`
	Status    string              `json:"status"`
	Data      any                 `json:"data,omitempty"`
	Errors    string              `json:"errors,omitempty"`
	Fields    []orders.FieldError `json:"fields,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
}

func statusName(code int) string {
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(code), " ", "_"))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Code: code, Status: statusName(code), Data: data})
}

func writeFail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Code: code, Status: statusName(code), Errors: msg})
}

// writeError memetakan error domain ke HTTP. Detail error internal tidak dibocorkan ke client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *orders.Error
	if !errors.As(err, &de) {
		de = orders.Internal(err)
	}

	code := http.StatusInternalServerError
	msg := de.Reason
	switch de.Kind {
	case orders.KindValidation:
		code = http.StatusBadRequest
		msg = de.Error()
	case orders.KindNotFound:
		code = http.StatusNotFound
		msg = de.Entity + " not found"
	case orders.KindInvalidState:
		code = http.StatusBadRequest
	case orders.KindTransaction:
		msg = "transaction failed, please retry"
	default:
		msg = "internal server error"
	}

	if code >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", de.Kind.String()).
			Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, code, envelope{
		Code:      code,
		Status:    statusName(code),
		Errors:    msg,
		Fields:    de.Fields,
		Retryable: de.Kind == orders.KindTransaction,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return orders.ValidationError(orders.FieldError{Field: "body", Rule: "json", Message: "invalid json body"})
	}
	return nil
}

// idParam: path param harus bilangan bulat positif.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, orders.ValidationError(orders.FieldError{Field: name, Rule: "gt", Message: name + " must be a positive number"})
	}
	return id, nil
}

// queryID: query param opsional; kosong = 0.
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, orders.ValidationError(orders.FieldError{Field: name, Rule: "gt", Message: name + " must be a positive number"})
	}
	return id, nil
}
