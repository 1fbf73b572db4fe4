package funnel

import (
	"context"
	"fmt"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"qreward/entity"
	"qreward/lib/api/response"
	"qreward/lib/sl"
)

type Core interface {
	RecordScan(ctx context.Context, params *entity.ScanParams) error
}

// Scan appends an analytics funnel event. These rows never gate issuance or
// redemption.
func Scan(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.funnel")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var params entity.ScanParams
		if err := render.Bind(r, &params); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		if err := handler.RecordScan(r.Context(), &params); err != nil {
			logger.Error("record scan", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Record scan: %v", err)))
			return
		}
		logger.Debug("scan recorded", slog.String("project", params.ProjectId))

		render.JSON(w, r, response.Ok(map[string]bool{"recorded": true}))
	}
}
