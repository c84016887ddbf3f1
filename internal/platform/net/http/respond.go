package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "swiftconcur/internal/platform/errors"
	"swiftconcur/internal/platform/logger"
	pnet "swiftconcur/internal/platform/net"
)

// Envelope is the body shape for enveloped responses and every error
type Envelope struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	Code       perr.ErrorCode    `json:"code,omitempty"`
	Error      string            `json:"error,omitempty"`
	Errors     []perr.FieldError `json:"errors,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Data       any               `json:"data,omitempty"`
}

// JSON writes v with status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Debug().Err(err).Msg("response encode failed")
	}
}

// ErrorEnvelope builds the envelope for err
func ErrorEnvelope(err error, reqID string) (int, Envelope) {
	status := perr.HTTPStatus(err)
	wr := perr.WireFrom(err)
	return status, Envelope{
		StatusCode: status,
		Status:     stdhttp.StatusText(status),
		Code:       wr.Code,
		Error:      wr.Message,
		Errors:     wr.Fields,
		RequestID:  reqID,
	}
}

// RespondError writes err as an envelope
func RespondError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	status, env := ErrorEnvelope(err, pnet.RequestID(r.Context()))
	if status >= stdhttp.StatusInternalServerError {
		logger.C(r.Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}
	JSON(w, status, env)
}

// RespondOK writes data in a 200 envelope
func RespondOK(w stdhttp.ResponseWriter, r *stdhttp.Request, data any) {
	JSON(w, stdhttp.StatusOK, Envelope{
		StatusCode: stdhttp.StatusOK,
		Status:     stdhttp.StatusText(stdhttp.StatusOK),
		RequestID:  pnet.RequestID(r.Context()),
		Data:       data,
	})
}

// Response is the value returned by return-style handlers
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
	// Raw writes Body without the envelope
	Raw bool
}

// Handle adapts a return-style handler
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		h(r).write(w, r)
	}
}

func (resp Response) write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	if err, ok := resp.Body.(error); ok && err != nil {
		RespondError(w, r, err)
		return
	}

	status := resp.Status
	if status == 0 {
		status = stdhttp.StatusOK
	}
	if status == stdhttp.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	if resp.Raw {
		JSON(w, status, resp.Body)
		return
	}
	JSON(w, status, Envelope{
		StatusCode: status,
		Status:     stdhttp.StatusText(status),
		RequestID:  pnet.RequestID(r.Context()),
		Data:       resp.Body,
	})
}

// OK returns an enveloped 200
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// Accepted returns an unenveloped 202; ingestion callers read the body directly
func Accepted(body any) Response {
	return Response{Status: stdhttp.StatusAccepted, Body: body, Raw: true}
}

// Raw returns an unenveloped body with status
func Raw(status int, body any) Response { return Response{Status: status, Body: body, Raw: true} }

// NoContent returns a 204
func NoContent() Response { return Response{Status: stdhttp.StatusNoContent} }

// Error returns a response that renders err
func Error(err error) Response { return Response{Body: err} }
