package hotel

type RoomState string

const (
	StateVacant   RoomState = "VACANT"
	StateOccupied RoomState = "OCCUPIED"
	StateDeleted  RoomState = "DELETED"
)

var validNext = map[RoomState]map[RoomState]bool{
	StateVacant:   {StateOccupied: true, StateDeleted: true},
	StateOccupied: {StateVacant: true},
	StateDeleted:  {},
}

func CanTransition(from, to RoomState) bool {
	return validNext[from][to]
}
