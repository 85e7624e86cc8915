package hotel

const TopicRoomEvents = "hotel.room.events"

// Partition key = room id so every event for one room stays ordered.
func PartitionKey(roomID string) []byte { return []byte(roomID) }
