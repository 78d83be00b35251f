package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ecosheet/ecosheet-backend/api/middleware"
	"github.com/ecosheet/ecosheet-backend/api/responses"
	"github.com/ecosheet/ecosheet-backend/api/validators"
	"github.com/ecosheet/ecosheet-backend/internal/audit"
	pkgerrors "github.com/ecosheet/ecosheet-backend/pkg/errors"
	"github.com/ecosheet/ecosheet-backend/pkg/logger"
)

type fieldChangeRequest struct {
	FieldName string `json:"fieldName" validate:"required"`
	OldValue  string `json:"oldValue"`
	NewValue  string `json:"newValue"`
}

type recordChangeRequest struct {
	SpreadsheetID string               `json:"spreadsheetId" validate:"required"`
	SheetName     string               `json:"sheetName"`
	UniqueID      string               `json:"uniqueId" validate:"required"`
	ChangedBy     string               `json:"changedBy" validate:"required,email"`
	Changes       []fieldChangeRequest `json:"changes" validate:"required,min=1,dive"`
}

type historyEntry struct {
	Timestamp string `json:"timestamp"`
	UserEmail string `json:"userEmail"`
	UniqueID  string `json:"uniqueId"`
	FieldName string `json:"fieldName"`
	OldValue  string `json:"oldValue"`
	NewValue  string `json:"newValue"`
}

// RecordChange appends one row per edited field to the change history. With
// an access token the rows land in the spreadsheet's history sheet, without
// one they go to the relational fallback.
func RecordChange(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		var req recordChangeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSpreadsheetID(ctx, req.SpreadsheetID)
			ctx = logg.WithUserEmail(ctx, req.ChangedBy)
		}

		changes := make([]audit.FieldChange, 0, len(req.Changes))
		for _, change := range req.Changes {
			changes = append(changes, audit.FieldChange{
				FieldName: change.FieldName,
				OldValue:  change.OldValue,
				NewValue:  change.NewValue,
			})
		}

		token := middleware.AccessTokenFromContext(ctx)
		message, err := svc.Record(ctx, token, audit.RecordInput{
			SpreadsheetID: req.SpreadsheetID,
			SheetName:     req.SheetName,
			UniqueID:      req.UniqueID,
			ChangedBy:     req.ChangedBy,
			Changes:       changes,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": message})
	}
}

// ChangeHistory lists change-history rows for one spreadsheet, newest first.
// userEmail filters by substring, uniqueId by exact match.
func ChangeHistory(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		spreadsheetID := strings.TrimSpace(chi.URLParam(r, "spreadsheetId"))
		if spreadsheetID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "spreadsheet ID is required"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithSpreadsheetID(ctx, spreadsheetID)
		}

		filter := audit.ListFilter{
			UserEmail: strings.TrimSpace(r.URL.Query().Get("userEmail")),
			UniqueID:  strings.TrimSpace(r.URL.Query().Get("uniqueId")),
		}

		token := middleware.AccessTokenFromContext(ctx)
		entries, err := svc.List(ctx, token, spreadsheetID, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		history := make([]historyEntry, 0, len(entries))
		for _, entry := range entries {
			history = append(history, historyEntry{
				Timestamp: entry.Timestamp,
				UserEmail: entry.UserEmail,
				UniqueID:  entry.UniqueID,
				FieldName: entry.FieldName,
				OldValue:  entry.OldValue,
				NewValue:  entry.NewValue,
			})
		}
		responses.WriteSuccess(w, map[string]any{"history": history})
	}
}
