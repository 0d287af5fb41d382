package ws

// Publisher is the server-internal publish API: it lets code outside the
// connection lifecycle (venue-update producers, admin endpoints) inject
// events into the broadcaster without holding a connection of its own.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher { return &Publisher{hub: hub} }

// SendNotificationToUser delivers to the first connection authenticated as
// userID. Reports whether a target was found; a miss is not an error.
func (p *Publisher) SendNotificationToUser(userID string, payload any) bool {
	return p.hub.SendToUser(userID, NewNotificationEnvelope(payload))
}

// SendNotificationToRoom returns the number of attempted deliveries.
func (p *Publisher) SendNotificationToRoom(room string, payload any) int {
	return p.hub.BroadcastRoom(room, NewRoomNotificationEnvelope(room, payload), nil)
}

// SendVenueUpdate fans out to the venue's room ("venue_<id>").
func (p *Publisher) SendVenueUpdate(venueID int64, payload any) int {
	env := NewVenueUpdateEnvelope(venueID, payload)
	return p.hub.BroadcastRoom(env.Room, env, nil)
}

func (p *Publisher) SendGlobalNotification(payload any) int {
	return p.hub.BroadcastGlobal(NewNotificationEnvelope(payload), nil)
}

func (p *Publisher) GetStats() Stats {
	return p.hub.Stats()
}
