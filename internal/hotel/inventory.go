package hotel

import (
	"math"
	"strings"
)

// Inventory owns room definitions. Rooms are kept in registration order.
type Inventory struct {
	rooms map[string]Room
	order []string
}

func NewInventory() *Inventory {
	return &Inventory{rooms: map[string]Room{}}
}

func (inv *Inventory) Register(id, category string, rate float64, amenities []string) (Room, error) {
	if id == "" {
		return Room{}, Errorf(KindValidation, "Room ID cannot be empty.")
	}
	if _, ok := inv.rooms[id]; ok {
		return Room{}, Errorf(KindValidation, "Room %s is already registered.", id)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return Room{}, Errorf(KindValidation, "Room category cannot be empty.")
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return Room{}, Errorf(KindValidation, "Room rate must be a positive number.")
	}

	room := Room{ID: id, Category: category, Rate: rate, Amenities: trimAmenities(amenities)}
	inv.rooms[id] = room
	inv.order = append(inv.order, id)
	return room.clone(), nil
}

// remove drops a room definition without looking at bookings; callers go
// through Hotel.Remove.
func (inv *Inventory) remove(id string) error {
	if _, ok := inv.rooms[id]; !ok {
		return Errorf(KindNotFound, "Room %s does not exist.", id)
	}

	delete(inv.rooms, id)
	for i, rid := range inv.order {
		if rid == id {
			inv.order = append(inv.order[:i], inv.order[i+1:]...)
			break
		}
	}
	return nil
}

func (inv *Inventory) Get(id string) (Room, error) {
	r, ok := inv.rooms[id]
	if !ok {
		return Room{}, Errorf(KindNotFound, "Room %s does not exist.", id)
	}
	return r.clone(), nil
}

// List returns a snapshot of every room in registration order.
func (inv *Inventory) List() []Room {
	out := make([]Room, 0, len(inv.order))
	for _, id := range inv.order {
		out = append(out, inv.rooms[id].clone())
	}
	return out
}

func (inv *Inventory) Len() int { return len(inv.rooms) }

// ParseAmenities splits a comma separated amenity list. Commas inside an
// amenity name cannot be escaped.
func ParseAmenities(s string) []string {
	return trimAmenities(strings.Split(s, ","))
}

func trimAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if t := strings.TrimSpace(a); t != "" {
			out = append(out, t)
		}
	}
	return out
}
