package domain

import "errors"

var (
	// ErrBadPassword is returned when the manager password does not match.
	ErrBadPassword = errors.New("bad password")
	// ErrRoomExists is returned when a room and manager are already active.
	ErrRoomExists = errors.New("room already exists")
	// ErrRoomNotFound is returned when the invite code matches no live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrUsernameTaken is returned on a duplicate username within the room.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrNotManager is returned when a non-manager issues a manager command.
	ErrNotManager = errors.New("only the manager may do that")
	// ErrAlreadyStarted is returned when joining or starting a running game.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrNoQuestions is returned when starting a game with an empty bank.
	ErrNoQuestions = errors.New("no questions configured")
	// ErrQuestionIndex is returned on an out-of-bounds question index.
	ErrQuestionIndex = errors.New("question index out of range")
	// ErrMidRound rejects question edits while an answering round is live.
	ErrMidRound = errors.New("cannot edit questions mid-round")
	// ErrBankNotFound indicates the question store has no such bank.
	ErrBankNotFound = errors.New("question bank not found")
)
