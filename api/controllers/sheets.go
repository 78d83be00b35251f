package controllers

import (
	"net/http"
	"strings"

	"github.com/ecosheet/ecosheet-backend/api/middleware"
	"github.com/ecosheet/ecosheet-backend/api/responses"
	"github.com/ecosheet/ecosheet-backend/api/validators"
	"github.com/ecosheet/ecosheet-backend/internal/mapping"
	"github.com/ecosheet/ecosheet-backend/internal/pipeline"
	pkgerrors "github.com/ecosheet/ecosheet-backend/pkg/errors"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
)

type mapFieldsRequest struct {
	SpreadsheetID string   `json:"spreadsheetId" validate:"required"`
	Headers       []string `json:"headers"`
}

type mapFieldsResponse struct {
	Message             string               `json:"message"`
	SalesMapping        mapping.FieldMapping `json:"salesMapping"`
	CustomerMapping     mapping.FieldMapping `json:"customerMapping"`
	SalesSheetName      string               `json:"salesSheetName"`
	CustomerSheetName   string               `json:"customerSheetName"`
	SalesSheetExists    bool                 `json:"salesSheetExists"`
	CustomerSheetExists bool                 `json:"customerSheetExists"`
}

// SheetHeaders returns the first sheet's title and header row so the caller
// can preview what a mapping job would work from.
func SheetHeaders(svc pipeline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pipeline service unavailable"))
			return
		}

		token := middleware.AccessTokenFromContext(r.Context())
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "a Google access token is required"))
			return
		}

		spreadsheetID := strings.TrimSpace(r.URL.Query().Get("spreadsheetId"))
		if spreadsheetID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheetId query parameter is required"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSpreadsheetID(ctx, spreadsheetID)
		}

		title, headers, err := svc.Headers(ctx, token, spreadsheetID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"sheetName": title,
			"headers":   headers,
		})
	}
}

// MapFields runs one full mapping job: resolve header mappings, project the
// source rows, score and aggregate them, and rewrite the normalized sheets.
func MapFields(svc pipeline.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pipeline service unavailable"))
			return
		}

		token := middleware.AccessTokenFromContext(r.Context())
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "a Google access token is required"))
			return
		}

		var req mapFieldsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSpreadsheetID(ctx, req.SpreadsheetID)
		}

		result, err := svc.MapFields(ctx, token, pipeline.JobInput{
			SpreadsheetID: req.SpreadsheetID,
			Headers:       req.Headers,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, mapFieldsResponse{
			Message:             result.Message,
			SalesMapping:        result.SalesMapping,
			CustomerMapping:     result.CustomerMapping,
			SalesSheetName:      result.SalesSheetName,
			CustomerSheetName:   result.CustomerSheetName,
			SalesSheetExists:    result.SalesSheetExists,
			CustomerSheetExists: result.CustomerSheetExists,
		})
	}
}
