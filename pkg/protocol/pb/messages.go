// Package pb defines the payload variants carried inside a wire package.
//
// Field names follow the JSON written by the legacy console client, so
// existing clients decode server packages without changes.
package pb

import "fmt"

// Type is the package tag. Values are fixed by the wire format.
type Type int

const (
	TypeAccountInfo       Type = 0
	TypeBroadcast         Type = 1
	TypeEcho              Type = 2
	TypeGameMessage       Type = 3
	TypeQuestionsQuestion Type = 4
	TypeCategories        Type = 5
	TypeQuestions         Type = 6
	TypeGameChoice        Type = 7
)

var typeNames = [...]string{
	TypeAccountInfo:       "AccountInfo",
	TypeBroadcast:         "Broadcast",
	TypeEcho:              "Echo",
	TypeGameMessage:       "GameMessage",
	TypeQuestionsQuestion: "QuestionsQuestion",
	TypeCategories:        "Categories",
	TypeQuestions:         "Questions",
	TypeGameChoice:        "GameChoice",
}

// Valid reports whether t is one of the eight known tags.
func (t Type) Valid() bool {
	return t >= TypeAccountInfo && t <= TypeGameChoice
}

func (t Type) String() string {
	if t.Valid() {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Payload is implemented by exactly one struct per Type.
type Payload interface {
	Kind() Type
}

// ----- Account -----

type Account struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AccountInfo struct {
	AccountInfo Account `json:"accountInfo"`
}

// ----- Text messages -----

// Broadcast is a chat line or a lobby command ("join", "start").
type Broadcast struct {
	Message string `json:"Message"`
}

// Echo relays another player's chat line.
type Echo struct {
	Echo string `json:"Echo"`
}

// GameMessage is server-authored text from a game session.
type GameMessage struct {
	Message string `json:"Message"`
}

// GameChoice carries a player's category, question id or answer.
type GameChoice struct {
	Message string `json:"Message"`
}

// ----- Game content -----

type CategorySummary struct {
	Category string `json:"Category"`
	Empty    bool   `json:"empty"`
}

type QuestionSummary struct {
	ID       int    `json:"Id"`
	Category string `json:"Category,omitempty"`
	Question string `json:"Question,omitempty"`
	Answer   string `json:"Answer,omitempty"`
}

// Categories lists every category with its exhausted flag. An empty list
// encodes as [] and a nil one as null.
type Categories struct {
	Categories []CategorySummary `json:"Categories"`
}

// Questions lists the ids still open in the chosen category.
type Questions struct {
	Questions []QuestionSummary `json:"Questions"`
}

// Question is the full record sent when a question is chosen.
type Question struct {
	Question *QuestionSummary `json:"Question,omitempty"`
}

func (AccountInfo) Kind() Type { return TypeAccountInfo }
func (Broadcast) Kind() Type   { return TypeBroadcast }
func (Echo) Kind() Type        { return TypeEcho }
func (GameMessage) Kind() Type { return TypeGameMessage }
func (Question) Kind() Type    { return TypeQuestionsQuestion }
func (Categories) Kind() Type  { return TypeCategories }
func (Questions) Kind() Type   { return TypeQuestions }
func (GameChoice) Kind() Type  { return TypeGameChoice }
