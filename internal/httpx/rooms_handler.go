package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ariefcatur/go-hotel-desk/internal/frontdesk"
	"github.com/ariefcatur/go-hotel-desk/internal/hotel"
	"github.com/go-chi/chi/v5"
)

type RegisterRoomReq struct {
	RoomID    string   `json:"room_id"`
	Category  string   `json:"category"`
	Rate      float64  `json:"rate"`
	Amenities []string `json:"amenities"`
}

type BookRoomReq struct {
	Guest string `json:"guest_name"`
}

type SaveResp struct {
	Saved  bool   `json:"saved"`
	Target string `json:"target"`
}

type BackupResp struct {
	BackedUp bool   `json:"backed_up"`
	Backup   string `json:"backup,omitempty"`
	Target   string `json:"target"`
}

// RoomsHandler exposes the desk over HTTP. The registries are not safe for
// concurrent use, so every request holds mu for its whole service call.
type RoomsHandler struct {
	Desk *frontdesk.Service

	mu sync.Mutex
}

func (h *RoomsHandler) Register(r *chi.Mux) {
	r.Get("/rooms", h.listRooms)
	r.Post("/rooms", h.registerRoom)
	r.Get("/rooms/{id}", h.getRoom)
	r.Delete("/rooms/{id}", h.removeRoom)
	r.Post("/rooms/{id}/booking", h.bookRoom)
	r.Delete("/rooms/{id}/booking", h.releaseRoom)
	r.Get("/bookings", h.status)
	r.Post("/bookings/save", h.save)
	r.Get("/bookings/file", h.load)
	r.Post("/bookings/backup", h.backup)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch hotel.KindOf(err) {
	case hotel.KindValidation:
		code = http.StatusBadRequest
	case hotel.KindNotFound:
		code = http.StatusNotFound
	case hotel.KindConflict:
		code = http.StatusConflict
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (h *RoomsHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, h.Desk.Rooms())
}

func (h *RoomsHandler) registerRoom(w http.ResponseWriter, r *http.Request) {
	var req RegisterRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, err := h.Desk.RegisterRoom(req.RoomID, req.Category, req.Rate, req.Amenities)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomsHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, err := h.Desk.Room(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomsHandler) removeRoom(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.Desk.RemoveRoom(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomsHandler) bookRoom(w http.ResponseWriter, r *http.Request) {
	var req BookRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	out, err := h.Desk.BookRoom(chi.URLParam(r, "id"), req.Guest)
	if err != nil {
		writeError(w, err)
		return
	}
	code := http.StatusCreated
	if !out.Booked {
		code = http.StatusOK
	}
	writeJSON(w, code, out)
}

func (h *RoomsHandler) releaseRoom(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inv, err := h.Desk.ReleaseRoom(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *RoomsHandler) status(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	writeJSON(w, http.StatusOK, h.Desk.Status())
}

func (h *RoomsHandler) save(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	saved, err := h.Desk.Save(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SaveResp{Saved: saved, Target: h.Desk.Target()})
}

func (h *RoomsHandler) load(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	bookings, err := h.Desk.Load(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *RoomsHandler) backup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	backup, err := h.Desk.BackupAndClear(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BackupResp{BackedUp: backup != "", Backup: backup, Target: h.Desk.Target()})
}
