package refdata

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/otabekov/orderdesk-backend/api/responses"
	"github.com/otabekov/orderdesk-backend/internal/fields"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
)

// Service is the slice of the reference-data accessors the form endpoints
// consume.
type Service interface {
	Filials(ctx context.Context) ([]upstream.Filial, error)
	PhoneNumbers(ctx context.Context) ([]upstream.PhoneNumber, error)
	Promocodes(ctx context.Context) ([]upstream.Promocode, error)
	Users(ctx context.Context) ([]upstream.User, error)
	UserLocations(ctx context.Context, userID string) ([]upstream.SavedLocation, error)
	CategoryStats(ctx context.Context, categoryID string) (*upstream.CategoryStats, error)
}

func Filials(svc Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(ctx context.Context) (any, error) {
		return svc.Filials(ctx)
	})
}

func PhoneNumbers(svc Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(ctx context.Context) (any, error) {
		return svc.PhoneNumbers(ctx)
	})
}

func Promocodes(svc Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(ctx context.Context) (any, error) {
		return svc.Promocodes(ctx)
	})
}

func Users(svc Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(logg, func(ctx context.Context) (any, error) {
		return svc.Users(ctx)
	})
}

func UserLocations(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		locations, err := svc.UserLocations(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, locations)
	}
}

func CategoryStats(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.CategoryStats(r.Context(), chi.URLParam(r, "categoryID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// ScheduleOptions lists the pickable fulfilment times: ASAP plus the fixed
// offsets from now.
func ScheduleOptions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, fields.ScheduleOptions(time.Now()))
	}
}

func listHandler(logg *logger.Logger, load func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := load(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}
