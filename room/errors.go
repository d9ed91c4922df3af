package room

import "errors"

// Request errors. The text is what the requesting client sees.
var (
	ErrRoomNotFound       = errors.New("Room not found.")
	ErrCodeSpaceExhausted = errors.New("Unable to create room.")
	ErrPickIdentity       = errors.New("Pick an identity.")
	ErrIdentityTaken      = errors.New("That identity is already taken.")
	ErrRoomFull           = errors.New("Room is full.")

	ErrSpectatorPick  = errors.New("Spectators cannot pick a game.")
	ErrSpectatorRound = errors.New("Spectators cannot start a round.")
	ErrSpectatorPlay  = errors.New("Spectators cannot play.")
	ErrSpectatorEnd   = errors.New("Spectators cannot end a game.")

	ErrWaitingForOpponent = errors.New("Waiting for another player.")
	ErrGameInProgress     = errors.New("Finish the current game first.")
	ErrShuffling          = errors.New("Picking who starts, hang on.")
	ErrNoGame             = errors.New("No game selected.")
	ErrNoActiveGame       = errors.New("No active game to end.")
	ErrEndPending         = errors.New("An end request is already pending.")
	ErrNoEndRequest       = errors.New("No end game request to approve.")
	ErrOwnEndRequest      = errors.New("Waiting for the other player.")
)
