package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("seathold-api", otelchi.WithChiRoutes(r)))
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)
	r.Use(app.requestLogger)

	r.Get("/healthcheck", app.GetHealth)

	r.Route("/screenings/{screeningID}", func(r chi.Router) {
		r.Post("/reservations", app.CreateReservationHandler)
		r.Post("/reservations/enqueue", app.EnqueueReservationHandler)
		r.Patch("/reservations", app.UpdateReservationKindHandler)
		r.Delete("/reservations", app.CancelReservationByUserHandler)

		r.Get("/seats", app.GetAvailableSeatsHandler)
		r.Get("/suggestions", app.SuggestAlternativesHandler)
		r.Get("/events", app.SeatEventsHandler)
	})

	r.Delete("/reservations/{groupID}", app.CancelReservationByGroupHandler)

	return r
}
