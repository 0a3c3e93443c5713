package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/GriffinCanCode/SophiChat/client/internal/types"
	"github.com/chzyer/readline"
)

// chatSession is the orchestrator surface the line client drives
type chatSession interface {
	Login(ctx context.Context, username, password string) error
	Logout()
	SendText(text string) error
	StartRecording(ctx context.Context) error
	StopRecording() error
	History() []types.ChatEvent
	Status() types.Status
	Subscribe() (<-chan types.ChatEvent, func())
}

const helpText = `commands:
  /login <user> [password]   sign in (asks for the password when omitted)
  /logout                    sign out and forget the stored token
  /rec                       start recording a voice message
  /stop                      stop recording and send it
  /status                    show connection state
  /history                   reprint the conversation
  /help                      show this help
  /quit                      exit
anything else is sent as a message`

var errQuit = errors.New("quit")

var commands = []string{"/login", "/logout", "/rec", "/stop", "/status", "/history", "/help", "/quit"}

// lineReader yields one input line per call and io.EOF at the end
type lineReader interface {
	Readline() (string, error)
}

// scanReader reads plain lines from pipes and files
type scanReader struct {
	scanner *bufio.Scanner
}

func (s scanReader) Readline() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// newLineReader uses readline on a terminal and a scanner otherwise.
// The returned writer keeps the prompt intact while events print.
func newLineReader(in io.Reader, out io.Writer) (lineReader, io.Writer, func(), error) {
	f, ok := in.(*os.File)
	if !ok || !readline.IsTerminal(int(f.Fd())) {
		return scanReader{bufio.NewScanner(in)}, out, func() {}, nil
	}

	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "› ",
		Stdin:           f,
		Stdout:          out,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	return rl, rl.Stdout(), func() { rl.Close() }, nil
}

// repl is the interactive line client of `sophi chat`
type repl struct {
	chat   chatSession
	render renderer
	in     lineReader

	outMu sync.Mutex
	out   io.Writer
}

func newREPL(chat chatSession, in lineReader, out io.Writer, render renderer) *repl {
	return &repl{
		chat:   chat,
		render: render,
		in:     in,
		out:    out,
	}
}

func (r *repl) println(s string) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintln(r.out, s)
}

// run prints events as they arrive and executes input lines until /quit,
// end of input or ctx cancellation
func (r *repl) run(ctx context.Context) error {
	events, cancel := r.chat.Subscribe()
	defer cancel()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for ev := range events {
			r.println(r.render.event(ev))
		}
	}()

	r.println(banner("Sophi chat"))
	r.println(r.render.status(r.chat.Status()))
	r.println(statusStyle.Render("type /help for commands"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			// Ctrl-C and Ctrl-D both end the session
			line, err := r.in.Readline()
			if err != nil {
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	defer func() {
		cancel()
		<-printed
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := r.handle(ctx, line, lines); errors.Is(err, errQuit) {
				return nil
			} else if err != nil {
				r.println(statusStyle.Render("! " + err.Error()))
			}
		}
	}
}

// handle executes one input line; lines supplies a follow-up password
func (r *repl) handle(ctx context.Context, line string, lines <-chan string) error {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		// Status events already report send failures
		r.chat.SendText(line)
		return nil
	}

	fields := strings.Fields(trimmed)
	switch fields[0] {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		r.println(helpText)
	case "/login":
		if len(fields) < 2 {
			return errors.New("usage: /login <user> [password]")
		}
		password := strings.Join(fields[2:], " ")
		if password == "" {
			r.println(statusStyle.Render("password:"))
			select {
			case p, ok := <-lines:
				if !ok {
					return errQuit
				}
				password = strings.TrimSpace(p)
			case <-ctx.Done():
				return errQuit
			}
		}
		// Login failures arrive as status events
		r.chat.Login(ctx, fields[1], password)
	case "/logout":
		r.chat.Logout()
		r.println(statusStyle.Render("· logged out"))
	case "/rec":
		// Permission and state errors arrive as status events
		r.chat.StartRecording(context.WithoutCancel(ctx))
	case "/stop":
		return r.chat.StopRecording()
	case "/status":
		r.println(r.render.status(r.chat.Status()))
	case "/history":
		for _, ev := range r.chat.History() {
			r.println(r.render.event(ev))
		}
	default:
		return fmt.Errorf("unknown command %s, try /help", fields[0])
	}
	return nil
}
