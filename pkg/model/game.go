package model

// GameStatus is the lifecycle of one game session.
type GameStatus int

const (
	GameCreated GameStatus = iota // waiting for players and the owner's start
	GameRunning
	GameStopped // terminal, removed from the pool
)

func (s GameStatus) String() string {
	switch s {
	case GameCreated:
		return "created"
	case GameRunning:
		return "running"
	case GameStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Phase is the turn state of a running game.
type Phase int

const (
	PhasePickCategory Phase = iota
	PhasePickQuestion
	PhaseAnswerQuestion
)

func (p Phase) String() string {
	switch p {
	case PhasePickCategory:
		return "pick-category"
	case PhasePickQuestion:
		return "pick-question"
	case PhaseAnswerQuestion:
		return "answer-question"
	default:
		return "unknown"
	}
}
