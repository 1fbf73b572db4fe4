package reward

import (
	"context"
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"qreward/entity"
	"qreward/lib/api/cont"
	"qreward/lib/api/response"
	"qreward/lib/sl"
)

type Core interface {
	IssueReward(ctx context.Context, params *entity.IssueParams) (*entity.IssuedReward, error)
	MarkReviewed(ctx context.Context, params *entity.ReviewParams) (int64, error)
}

func Issue(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("operator", cont.GetUser(r.Context()).Username),
		)

		var params entity.IssueParams
		if err := render.Bind(r, &params); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("project", params.ProjectId),
		)

		issued, err := handler.IssueReward(r.Context(), &params)
		if err != nil {
			logger.Error("issue reward", sl.Err(err))
			status := http.StatusBadRequest
			if !errors.Is(err, entity.ErrProjectNotFound) &&
				!errors.Is(err, entity.ErrProjectNotConfigured) &&
				!errors.Is(err, entity.ErrInvalidPrizeTable) {
				status = http.StatusInternalServerError
			}
			render.Status(r, status)
			render.JSON(w, r, response.Error(fmt.Sprintf("Issue reward: %v", err)))
			return
		}
		logger.Debug("reward issued", slog.String("prize", issued.Prize))

		render.JSON(w, r, response.Ok(issued))
	}
}

// Review marks the click-through to the external review link. Both possible
// outcomes (marked now, or nothing to mark) are successes; the caller reads
// the updated count to tell them apart.
func Review(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.reward")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var params entity.ReviewParams
		if err := render.Bind(r, &params); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(
			slog.String("project", params.ProjectId),
		)

		updated, err := handler.MarkReviewed(r.Context(), &params)
		if err != nil {
			logger.Error("mark reviewed", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error(fmt.Sprintf("Mark reviewed: %v", err)))
			return
		}
		logger.Debug("review click tracked", slog.Int64("updated", updated))

		render.JSON(w, r, response.Ok(map[string]int64{"updated": updated}))
	}
}
