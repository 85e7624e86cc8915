package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	"github.com/go-chi/chi/v5"
)

// ProjectionReader is the read side kept by the projector.
type ProjectionReader interface {
	Bookings(ctx context.Context) (map[string]string, error)
	LastInvoice(ctx context.Context, roomID string) (hotel.Invoice, error)
}

// ProjectionHandler serves the Redis view built from room events. It only
// reads, so requests are not serialised.
type ProjectionHandler struct {
	View ProjectionReader
}

func (h *ProjectionHandler) Register(r *chi.Mux) {
	r.Get("/projection/bookings", h.bookings)
	r.Get("/projection/rooms/{id}/invoice", h.lastInvoice)
}

func (h *ProjectionHandler) bookings(w http.ResponseWriter, r *http.Request) {
	b, err := h.View.Bookings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *ProjectionHandler) lastInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.View.LastInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
