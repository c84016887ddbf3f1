// Package http is the ingestion transport: the multipart report upload and run queries
package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"swiftconcur/internal/modkit/httpkit"
	perr "swiftconcur/internal/platform/errors"
	pnet "swiftconcur/internal/platform/net"
	accessdomain "swiftconcur/internal/services/api/access/domain"
	"swiftconcur/internal/services/api/ingest/domain"
)

// Service is what the handlers need
type Service interface {
	domain.ServicePort
	MaxBytes() int64
}

// multipartSlack covers boundaries and part headers around the file
const multipartSlack = 16 << 10

type handlers struct{ svc Service }

// Register mounts the ingestion routes
func Register(r httpkit.Router, s Service) {
	h := &handlers{svc: s}
	r.Post("/reports", httpkit.Handle(h.ingest))
	httpkit.Get(r, "/runs", h.list)
	httpkit.Get(r, "/runs/{runID}", h.get)
	httpkit.Get(r, "/runs/{runID}/warnings", h.warnings)
}

// ingest godoc
// @Summary Submit a concurrency warning report
// @Description Multipart upload with one part named warnings.json. Validation, plan limits and the
// @Description hard cap of 1000 warnings are enforced before anything is written.
// @Tags Reports
// @Accept multipart/form-data
// @Produce json
// @Param warnings.json formData file true "WarningReport JSON"
// @Success 202 {object} domain.Accepted
// @Failure 400 {object} httpkit.Envelope
// @Failure 403 {object} httpkit.Envelope
// @Failure 409 {object} httpkit.Envelope
// @Failure 413 {object} httpkit.Envelope
// @Failure 429 {object} httpkit.Envelope
// @Router /reports [post]
func (h *handlers) ingest(r *http.Request) httpkit.Response {
	t, ok := accessdomain.TierFrom(r.Context())
	if !ok {
		return httpkit.Error(perr.Unavailablef("plan not resolved"))
	}
	body, err := readFilePart(r, h.svc.MaxBytes())
	if err != nil {
		return httpkit.Error(err)
	}
	out, err := h.svc.Ingest(r.Context(), domain.Submission{
		RepoID: pnet.RepoID(r.Context()),
		Tier:   t,
		Body:   body,
	})
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.Accepted(out)
}

// readFilePart streams the multipart body and returns the warnings.json part,
// reading at most one byte past maxBytes so the service can tell oversize apart
func readFilePart(r *http.Request, maxBytes int64) ([]byte, error) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "multipart/form-data" {
		return nil, perr.Validationf("content type must be multipart/form-data")
	}
	if r.ContentLength > maxBytes+multipartSlack {
		return nil, perr.TooLargef("%s exceeds %d bytes", domain.FilePart, maxBytes)
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes+multipartSlack)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, perr.Validationf("malformed multipart body")
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, perr.WithField(perr.Validationf("missing %s part", domain.FilePart), domain.FilePart)
		}
		if err != nil {
			return nil, bodyError(err, maxBytes)
		}
		if part.FormName() != domain.FilePart {
			_ = part.Close()
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		_ = part.Close()
		if err != nil {
			return nil, bodyError(err, maxBytes)
		}
		return data, nil
	}
}

func bodyError(err error, maxBytes int64) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return perr.TooLargef("%s exceeds %d bytes", domain.FilePart, maxBytes)
	}
	return perr.Validationf("malformed multipart body")
}

// list godoc
// @Summary Latest runs of the authenticated repository
// @Tags Runs
// @Produce json
// @Param limit query int false "Runs to return (default 20, max 100)"
// @Success 200 {array} domain.Run
// @Router /runs [get]
func (h *handlers) list(r *http.Request) (any, error) {
	var in domain.ListInput
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, perr.WithField(perr.Validationf("limit must be an integer"), "limit")
		}
		in.Limit = n
	}
	return h.svc.List(r.Context(), pnet.RepoID(r.Context()), in)
}

// get godoc
// @Summary One run
// @Tags Runs
// @Produce json
// @Param runID path string true "Run id"
// @Success 200 {object} domain.Run
// @Failure 404 {object} httpkit.Envelope
// @Router /runs/{runID} [get]
func (h *handlers) get(r *http.Request) (any, error) {
	return h.svc.Get(r.Context(), pnet.RepoID(r.Context()), httpkit.URLParam(r, "runID"))
}

// warnings godoc
// @Summary Persisted warnings of a run
// @Tags Runs
// @Produce json
// @Param runID path string true "Run id"
// @Success 200 {array} report.Warning
// @Failure 404 {object} httpkit.Envelope
// @Router /runs/{runID}/warnings [get]
func (h *handlers) warnings(r *http.Request) (any, error) {
	return h.svc.Warnings(r.Context(), pnet.RepoID(r.Context()), httpkit.URLParam(r, "runID"))
}
