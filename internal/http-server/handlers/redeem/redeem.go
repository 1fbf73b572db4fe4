package redeem

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"qreward/entity"
	"qreward/lib/api/response"
	"qreward/lib/sl"
)

type Core interface {
	Redeem(ctx context.Context, code string) (*entity.Redemption, error)
}

// Redeem is the public redemption gateway. The code comes from the URL
// verbatim; user-facing error messages stay generic while details go to the
// log.
func Redeem(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.redeem")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		code := chi.URLParam(r, "code")
		if code == "" {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Invalid QR code"))
			return
		}
		logger = logger.With(sl.Code(code))

		redemption, err := handler.Redeem(r.Context(), code)
		if err != nil {
			status, message := redeemError(err)
			if status == http.StatusInternalServerError {
				logger.Error("redeem", sl.Err(err))
			} else {
				logger.Debug("redeem rejected", sl.Err(err))
			}
			render.Status(r, status)
			render.JSON(w, r, response.Error(message))
			return
		}
		logger.Info("reward presented", slog.String("prize", redemption.Prize))

		render.JSON(w, r, response.Ok(redemption))
	}
}

// redeemError maps the terminal domain outcomes onto HTTP statuses. Storage
// transport failures land on 500 and remain retryable: a redemption retry is
// idempotent, a retry of a success just yields "already redeemed".
func redeemError(err error) (int, string) {
	switch {
	case errors.Is(err, entity.ErrInvalidCode):
		return http.StatusNotFound, "Invalid QR code"
	case errors.Is(err, entity.ErrAlreadyRedeemed):
		return http.StatusConflict, "Reward already redeemed"
	case errors.Is(err, entity.ErrExpired):
		return http.StatusGone, "Reward expired"
	default:
		// ErrBusinessProfileMissing and storage failures surface as a
		// generic error; the operator sees the logged detail
		return http.StatusInternalServerError, "Unable to redeem reward"
	}
}
