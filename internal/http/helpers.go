package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"finflow/internal/core"
	"finflow/internal/services"
	"finflow/internal/session"
)

const sessionCookie = "finflow_session"

// sessionID returns the session cookie value, or "" when absent or malformed.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil || !session.ValidID(c.Value) {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrFileRead), errors.Is(err, ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMalformedDate),
		errors.Is(err, core.ErrMalformedAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrUnresolvedColumn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrNotFound), errors.Is(err, services.ErrImportDisabled):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown for err. Internal failures are not detailed.
func userMessage(err error) string {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return "Arquivo muito grande."
	case errors.Is(err, core.ErrFileRead):
		return "Não foi possível ler o arquivo: " + err.Error()
	case errors.Is(err, core.ErrUnresolvedColumn):
		return "Selecione as colunas obrigatórias: " + err.Error()
	case errors.Is(err, services.ErrImportDisabled):
		return "Importação do Google Sheets não está configurada."
	case errors.Is(err, session.ErrNotFound):
		return "Sessão expirada. Envie o arquivo novamente."
	}
	if statusFor(err) < http.StatusInternalServerError {
		return err.Error()
	}
	return "Erro interno. Tente novamente."
}

// templateFuncs are the display helpers available to every page.
func templateFuncs(currency string) template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return core.FormatMoney(d, currency)
		},
		"percent": core.FormatPercent,
		"date": func(d core.Date) string {
			if d.IsZero() {
				return ""
			}
			return d.Format("02/01/2006")
		},
		"isoDate": func(d core.Date) string {
			if d.IsZero() {
				return ""
			}
			return d.Format("2006-01-02")
		},
		"typeLabel": func(t core.TxType) string {
			return t.Label()
		},
		"lower": strings.ToLower,
		"negative": func(d decimal.Decimal) bool {
			return d.IsNegative()
		},
	}
}
