package handlers

import "fmt"

func validateRoomID(roomID string) error {
	if normalizeID(roomID) == "" {
		return fmt.Errorf("roomId required")
	}
	return nil
}

func validatePlayerID(playerID string) error {
	if normalizeID(playerID) == "" {
		return fmt.Errorf("playerId required")
	}
	return nil
}

func validateSessionID(sessionID string) error {
	if normalizeID(sessionID) == "" {
		return fmt.Errorf("sessionId required")
	}
	return nil
}
