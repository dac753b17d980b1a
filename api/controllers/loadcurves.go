package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/wattly/wattly-backend/api/responses"
	"github.com/wattly/wattly-backend/internal/authz"
	"github.com/wattly/wattly-backend/internal/ingest"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/logger"
)

const maxUploadBytes = 32 << 20

// LoadCurveImport ingests a load-curve CSV for one organization. The body is
// either a multipart form with a "file" part or the raw CSV itself.
func LoadCurveImport(svc ingest.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingest service unavailable"))
			return
		}

		orgID, err := orgIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := authz.Can(actorFrom(r), authz.ActionImportLoadCurves, orgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, closeInput, err := uploadBody(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer closeInput()

		report, err := svc.Import(r.Context(), orgID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

func uploadBody(r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart upload")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "missing file part")
		}
		return file, func() { _ = file.Close() }, nil
	}
	return r.Body, func() {}, nil
}
