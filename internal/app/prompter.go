package app

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	promptPickerID = "prompt"
	confirmYes     = "Yes"
	confirmNo      = "No"
)

type promptReply struct {
	value string
	ok    bool
}

// promptMsg asks the model to show a prompt and answer on reply.
type promptMsg struct {
	title   string
	message string
	items   []string
	reply   chan promptReply
}

// Prompter shows build prompts inside a running program. Calls block the
// building goroutine until the user answers.
type Prompter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func NewPrompter() *Prompter {
	return &Prompter{}
}

// Attach connects the prompter to a program, typically tea.Program.Send.
// Until then every prompt is declined.
func (p *Prompter) Attach(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(ctx context.Context, msg string) bool {
	v, ok := p.ask(ctx, promptMsg{title: "Confirm", message: msg, items: []string{confirmYes, confirmNo}})
	return ok && v == confirmYes
}

// Pick asks the user to choose one of items.
func (p *Prompter) Pick(ctx context.Context, title string, items []string) (string, bool) {
	return p.ask(ctx, promptMsg{title: title, items: items})
}

func (p *Prompter) ask(ctx context.Context, m promptMsg) (string, bool) {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send == nil {
		return "", false
	}

	m.reply = make(chan promptReply, 1)
	send(m)
	select {
	case r := <-m.reply:
		return r.value, r.ok
	case <-ctx.Done():
		return "", false
	}
}
