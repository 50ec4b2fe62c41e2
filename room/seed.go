package room

// demoPlayers are the two seated placeholders the lobby page shows before anyone connects.
var demoPlayers = []Player{
	{
		Identity:      "FakePlayer1111111111111111111111111111111",
		DisplayLabel:  "FakePlayer1",
		Seat:          1,
		ShotCount:     5,
		SurvivalCount: 3,
	},
	{
		Identity:      "FakePlayer2222222222222222222222222222222",
		DisplayLabel:  "FakePlayer2",
		Seat:          3,
		ShotCount:     3,
		SurvivalCount: 7,
	},
}

// SeedDemo seats the demo placeholders in roomID.
func (m *Registry) SeedDemo(roomID string) error {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	for _, p := range demoPlayers {
		if err := room.Seed(p); err != nil {
			return err
		}
	}
	return nil
}
