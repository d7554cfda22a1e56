// Package protocol defines the wire package and its encoding.
//
// A package is a tagged union: {"type": <tag>, "data": {...}} where the shape
// of data is fixed by the tag. On the wire each encoded package is sealed by
// the line cipher and written as one line.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
)

// ErrProtocol is returned for packages that are not well formed.
var ErrProtocol = errors.New("protocol: malformed package")

// Package is one unit of wire communication. Build it with New or one of the
// typed constructors; Type always equals Data.Kind().
type Package struct {
	Type pb.Type
	Data pb.Payload
}

// New wraps a payload with its tag.
func New(p pb.Payload) Package {
	return Package{Type: p.Kind(), Data: p}
}

func NewAccountInfo(username, password string) Package {
	return New(pb.AccountInfo{AccountInfo: pb.Account{Username: username, Password: password}})
}

func NewBroadcast(msg string) Package   { return New(pb.Broadcast{Message: msg}) }
func NewEcho(msg string) Package        { return New(pb.Echo{Echo: msg}) }
func NewGameMessage(msg string) Package { return New(pb.GameMessage{Message: msg}) }
func NewGameChoice(msg string) Package  { return New(pb.GameChoice{Message: msg}) }

func NewCategories(cs []pb.CategorySummary) Package {
	return New(pb.Categories{Categories: cs})
}

func NewQuestions(qs []pb.QuestionSummary) Package {
	return New(pb.Questions{Questions: qs})
}

func NewQuestion(q pb.QuestionSummary) Package {
	return New(pb.Question{Question: &q})
}

// Text returns the message of text-bearing packages and "" otherwise.
func (p Package) Text() string {
	switch d := p.Data.(type) {
	case pb.Broadcast:
		return d.Message
	case pb.Echo:
		return d.Echo
	case pb.GameMessage:
		return d.Message
	case pb.GameChoice:
		return d.Message
	default:
		return ""
	}
}

func (p Package) String() string {
	return fmt.Sprintf("%s %+v", p.Type, p.Data)
}

type outgoing struct {
	Type pb.Type    `json:"type"`
	Data pb.Payload `json:"data"`
}

type incoming struct {
	Type *pb.Type       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode serializes a package to its structured-text form.
func Encode(p Package) ([]byte, error) {
	if p.Data == nil {
		return nil, fmt.Errorf("%w: %s has no data", ErrProtocol, p.Type)
	}
	if p.Data.Kind() != p.Type {
		return nil, fmt.Errorf("%w: tag %s does not match payload %T", ErrProtocol, p.Type, p.Data)
	}
	data, err := json.Marshal(outgoing{Type: p.Type, Data: p.Data})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal: %w", err)
	}
	return data, nil
}

// Decode parses structured text, reading the tag before the payload.
func Decode(data []byte) (Package, error) {
	var in incoming
	if err := json.Unmarshal(data, &in); err != nil {
		return Package{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	if in.Type == nil {
		return Package{}, fmt.Errorf("%w: missing type", ErrProtocol)
	}
	t := *in.Type
	if !t.Valid() {
		return Package{}, fmt.Errorf("%w: unknown type %d", ErrProtocol, int(t))
	}
	if len(in.Data) == 0 || bytes.Equal(bytes.TrimSpace(in.Data), []byte("null")) {
		return Package{}, fmt.Errorf("%w: %s without data", ErrProtocol, t)
	}

	var (
		p   pb.Payload
		err error
	)
	switch t {
	case pb.TypeAccountInfo:
		var v pb.AccountInfo
		err = json.Unmarshal(in.Data, &v)
		p = v
	case pb.TypeBroadcast:
		var v pb.Broadcast
		err = json.Unmarshal(in.Data, &v)
		p = v
	case pb.TypeEcho:
		var v pb.Echo
		err = json.Unmarshal(in.Data, &v)
		p = v
	case pb.TypeGameMessage:
		var v pb.GameMessage
		err = json.Unmarshal(in.Data, &v)
		p = v
	case pb.TypeQuestionsQuestion:
		var v pb.Question
		err = json.Unmarshal(in.Data, &v)
		p = v
	case pb.TypeCategories:
		var v pb.Categories
		err = json.Unmarshal(in.Data, &v)
		p = v
	case pb.TypeQuestions:
		var v pb.Questions
		err = json.Unmarshal(in.Data, &v)
		p = v
	case pb.TypeGameChoice:
		var v pb.GameChoice
		err = json.Unmarshal(in.Data, &v)
		p = v
	}
	if err != nil {
		return Package{}, fmt.Errorf("%w: %s data: %v", ErrProtocol, t, err)
	}
	return Package{Type: t, Data: p}, nil
}
