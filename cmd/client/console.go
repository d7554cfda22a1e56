package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/NicolasHaas/quizline/pkg/protocol"
	pb "github.com/NicolasHaas/quizline/pkg/protocol/pb"
)

const helpText = `Commands:
  join           find a game to play in
  start          start your game (owner only)
  say <text>     chat with everyone online
  choice <text>  pick a category, a question id or answer the question
  help, ?        show this list
  quit           leave`

// command is one parsed console line.
type command struct {
	name string
	arg  string
}

// parseCommand splits a console line into a lower-cased verb and the rest.
// Aliases collapse onto the verbs the console handles.
func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, false
	}
	name, arg, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	switch name {
	case "?":
		name = "help"
	case "message", "msg":
		name = "say"
	case "exit":
		name = "quit"
	case "c":
		name = "choice"
	}
	return command{name: name, arg: strings.TrimSpace(arg)}, true
}

// render formats a server package for the console. Chat echoes already
// carry the sender prefix.
func render(p protocol.Package) string {
	switch d := p.Data.(type) {
	case pb.Broadcast:
		return "Server > " + d.Message
	case pb.Echo:
		return d.Echo
	case pb.GameMessage:
		return "Game > " + d.Message
	case pb.Categories:
		var b strings.Builder
		b.WriteString("Enter name of Category you wish to choose:")
		for _, c := range d.Categories {
			if !c.Empty {
				b.WriteString("\n  " + c.Category)
			}
		}
		return b.String()
	case pb.Questions:
		var b strings.Builder
		b.WriteString("Enter ID of Question you wish to choose:")
		for _, q := range d.Questions {
			fmt.Fprintf(&b, "\n  %d", q.ID)
		}
		return b.String()
	case pb.Question:
		if d.Question == nil {
			return ""
		}
		return fmt.Sprintf("Category > %s\nChosen QuestionID > %d\nChosen Question > %s",
			d.Question.Category, d.Question.ID, d.Question.Question)
	default:
		return p.String()
	}
}

// printer serializes output from the receive goroutine and the input loop.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, s)
}
