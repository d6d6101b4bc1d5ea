package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/bowenSteve/kipsunya-biz/pkg/errors"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/types"
)

// Codes whose internal message is safe to show clients verbatim. Everything
// else gets the generic public message for its code.
var clientSafeCodes = map[pkgerrors.Code]struct{}{
	pkgerrors.CodeValidation:         {},
	pkgerrors.CodeForbidden:          {},
	pkgerrors.CodeUnauthorized:       {},
	pkgerrors.CodeNotFound:           {},
	pkgerrors.CodeConflict:           {},
	pkgerrors.CodeEmptyCart:          {},
	pkgerrors.CodeProductUnavailable: {},
	pkgerrors.CodeInsufficientStock:  {},
	pkgerrors.CodeInvalidTransition:  {},
	pkgerrors.CodeCheckoutFailed:     {},
	pkgerrors.CodeIdempotency:        {},
	pkgerrors.CodeRateLimit:          {},
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data})
}

// WriteError maps the typed error to its HTTP status, logs the full dump, and
// sends the client a code + message envelope.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if _, safe := clientSafeCodes[typed.Code()]; safe {
		if m := typed.Message(); m != "" {
			msg = m
		}
	}

	payload := types.ErrorEnvelope{
		Error: types.APIError{
			Code:    string(typed.Code()),
			Message: msg,
		},
	}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		dump := pkgerrors.Dump(err)
		fields := map[string]any{
			"error":       dump.TopMessage,
			"error_code":  dump.Code,
			"error_chain": dump.Chain,
		}
		if dump.PGCode != "" {
			fields["pg_code"] = dump.PGCode
			fields["pg_detail"] = dump.PGDetail
			fields["pg_message"] = dump.PGMessage
			fields["pg_table"] = dump.PGTable
			fields["pg_column"] = dump.PGColumn
			fields["pg_constraint"] = dump.PGConstraint
		}
		logg.Error(logg.WithFields(ctx, fields), "request failed", err)
	}

	writeJSON(w, meta.HTTPStatus, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
