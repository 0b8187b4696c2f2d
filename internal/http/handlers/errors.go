package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"trendrider/internal/effects"
	"trendrider/internal/i18n"
)

// effectsError maps an effects client error onto an HTTP status, an error
// code and a localized message.
func (a *App) effectsError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *effects.ValidationError
		perr *effects.PollError
		prot *effects.ProtocolError
		terr *effects.TransportError
	)
	switch {
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// The caller went away; nobody reads the response.
		a.Logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request cancelled")
		return
	case errors.As(err, &verr):
		a.error(w, r, http.StatusBadRequest, "invalid_request", i18n.MsgInvalidRequest, verr.Message)
	case errors.As(err, &perr):
		switch perr.Kind {
		case effects.PollRemote:
			a.error(w, r, http.StatusUnprocessableEntity, "remote_failed", i18n.MsgRemoteFailed, perr.Message)
		case effects.PollTimeout:
			a.error(w, r, http.StatusGatewayTimeout, "timed_out", i18n.MsgTimeout)
		default:
			a.error(w, r, http.StatusBadGateway, "empty_response", i18n.MsgEmptyStatus)
		}
	case errors.As(err, &prot):
		a.error(w, r, http.StatusBadGateway, string(prot.Kind), i18n.MsgBadResponse)
	case errors.As(err, &terr):
		switch terr.Kind {
		case effects.TransportTimeout:
			a.error(w, r, http.StatusGatewayTimeout, "transport_timeout", i18n.MsgTransportTimeout)
		case effects.TransportRejected:
			reason := terr.Message
			if reason == "" {
				reason = fmt.Sprintf("status %d", terr.Status)
			}
			a.error(w, r, http.StatusBadGateway, string(terr.Kind), i18n.MsgRejected, reason)
		default:
			a.error(w, r, http.StatusBadGateway, string(terr.Kind), i18n.MsgNetwork)
		}
	case errors.Is(err, context.DeadlineExceeded):
		a.error(w, r, http.StatusGatewayTimeout, "timed_out", i18n.MsgTimeout)
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected effects error")
		a.error(w, r, http.StatusInternalServerError, "internal", i18n.MsgUnexpected, err.Error())
		return
	}
	a.Logger.Warn().Err(err).Str("path", r.URL.Path).Msg("effects request failed")
}
