package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/inbox"
)

// session is the part of inbox.Session the terminal drives.
type session interface {
	Send(ctx context.Context, counterpartID, body string) (inbox.Message, error)
	SendAbout(ctx context.Context, itemRef, counterpartID, body string) (inbox.Message, error)
	Select(ctx context.Context, counterpartID string) (inbox.View, error)
	ClearSelection(ctx context.Context) (inbox.View, error)
	View(ctx context.Context) (inbox.View, error)
	Refresh(ctx context.Context) error
	Watch() (<-chan inbox.View, func())
}

type command struct {
	name string
	args []string
	text string
}

const helpText = `commands:
  /list                           show conversations
  /open <n|user-id>               open a conversation
  /close                          close the open conversation
  /about <item-id> <user-id> text start a conversation about a listing
  /refresh                        reload from the server
  /quit                           exit
anything else is sent to the open conversation`

// parseCommand splits a line into a slash command or plain text.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{text: line}
	}

	fields := strings.Fields(line)
	cmd := command{name: strings.ToLower(strings.TrimPrefix(fields[0], "/"))}
	switch cmd.name {
	case "about":
		// item and user are single tokens; the body keeps its spacing
		rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		parts := strings.SplitN(rest, " ", 3)
		for _, p := range parts[:min(2, len(parts))] {
			if p = strings.TrimSpace(p); p != "" {
				cmd.args = append(cmd.args, p)
			}
		}
		if len(parts) == 3 {
			cmd.text = strings.TrimSpace(parts[2])
		}
	default:
		cmd.args = fields[1:]
	}
	return cmd
}

type repl struct {
	session session
	me      string
	out     *bufio.Writer
	log     zerolog.Logger

	shown   map[string]struct{}
	current string
}

func newREPL(s session, me string, out *bufio.Writer, logger zerolog.Logger) *repl {
	return &repl{
		session: s,
		me:      me,
		out:     out,
		log:     logger,
		shown:   make(map[string]struct{}),
	}
}

// Run prints view updates and executes lines from in until /quit, EOF or ctx ends.
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	views, unwatch := r.session.Watch()
	defer unwatch()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.printf("signed in as %s\n%s\n", r.me, helpText)
	if view, err := r.session.View(ctx); err == nil {
		r.printList(view)
	}
	r.flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case view, ok := <-views:
			if !ok {
				return nil
			}
			r.onView(view)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.exec(ctx, parseCommand(line))
			if err != nil {
				r.printf("! %v\n", err)
			}
			if quit {
				r.flush()
				return nil
			}
		}
		r.flush()
	}
}

func (r *repl) exec(ctx context.Context, cmd command) (bool, error) {
	switch cmd.name {
	case "":
		if cmd.text == "" {
			return false, nil
		}
		if r.current == "" {
			return false, errors.New("no conversation is open, use /open or /about")
		}
		_, err := r.session.Send(ctx, r.current, cmd.text)
		return false, describeSendError(err)
	case "quit", "exit":
		return true, nil
	case "help":
		r.printf("%s\n", helpText)
	case "list":
		view, err := r.session.View(ctx)
		if err != nil {
			return false, err
		}
		r.printList(view)
	case "refresh":
		return false, r.session.Refresh(ctx)
	case "close":
		_, err := r.session.ClearSelection(ctx)
		return false, err
	case "open":
		if len(cmd.args) != 1 {
			return false, errors.New("usage: /open <n|user-id>")
		}
		view, err := r.session.View(ctx)
		if err != nil {
			return false, err
		}
		target := resolveTarget(view, cmd.args[0])
		view, err = r.session.Select(ctx, target)
		if err != nil {
			return false, err
		}
		if view.Current == nil {
			r.printf("no conversation with %s yet, start one with /about\n", target)
			return false, nil
		}
		r.onView(view)
	case "about":
		if len(cmd.args) != 2 || cmd.text == "" {
			return false, errors.New("usage: /about <item-id> <user-id> text")
		}
		if _, err := r.session.SendAbout(ctx, cmd.args[0], cmd.args[1], cmd.text); err != nil {
			return false, describeSendError(err)
		}
		_, err := r.session.Select(ctx, cmd.args[1])
		return false, err
	default:
		return false, fmt.Errorf("unknown command /%s, try /help", cmd.name)
	}
	return false, nil
}

// resolveTarget maps a 1-based list position to a counterpart id.
func resolveTarget(view inbox.View, arg string) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(view.Conversations) {
		return view.Conversations[n-1].CounterpartID
	}
	return arg
}

func (r *repl) onView(view inbox.View) {
	current := view.Current
	if current == nil {
		if r.current != "" {
			r.printf("-- conversation closed --\n")
			r.current = ""
		}
		return
	}

	if current.CounterpartID != r.current {
		r.current = current.CounterpartID
		r.shown = make(map[string]struct{})
		r.printf("-- %s --\n", current.CounterpartLabel)
	}
	for _, m := range current.Messages {
		// placeholders are printed once the store confirms them
		if m.Pending {
			continue
		}
		if _, ok := r.shown[m.ID]; ok {
			continue
		}
		r.shown[m.ID] = struct{}{}
		r.printf("%s\n", formatMessage(m, current))
	}
}

func (r *repl) printList(view inbox.View) {
	if len(view.Conversations) == 0 {
		r.printf("no conversations yet\n")
		return
	}
	for i, c := range view.Conversations {
		if len(c.Messages) == 0 {
			r.printf("%2d. %-24s (no messages yet)\n", i+1, c.CounterpartLabel)
			continue
		}
		last := c.LastMessage
		r.printf("%2d. %-24s %s  %s\n", i+1, c.CounterpartLabel, last.CreatedAt.Local().Format("Jan 02 15:04"), preview(last.Body, 40))
	}
}

func formatMessage(m inbox.Message, conv *inbox.Conversation) string {
	who := conv.CounterpartLabel
	if m.SenderID != conv.CounterpartID {
		who = "you"
	}
	return fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format(time.Kitchen), who, m.Body)
}

func preview(body string, n int) string {
	body = strings.Join(strings.Fields(body), " ")
	if r := []rune(body); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return body
}

func describeSendError(err error) error {
	if err == nil {
		return nil
	}
	var sendErr *inbox.SendError
	if errors.As(err, &sendErr) {
		return fmt.Errorf("not sent, your text was %q: %w", sendErr.Draft.Body, sendErr.Err)
	}
	return err
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) flush() {
	if err := r.out.Flush(); err != nil {
		r.log.Debug().Err(err).Msg("flush output")
	}
}
