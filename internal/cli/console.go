// Package cli is a line-oriented terminal front-end for a chat session.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/client"
	"github.com/yousefmohseen/chatroom/internal/proto"
	"github.com/yousefmohseen/chatroom/internal/session"
)

// Session is the lifecycle surface the console drives.
type Session interface {
	Start(ctx context.Context) error
	Send(ctx context.Context, text string) error
	Leave(ctx context.Context) error
	DeleteAccount(ctx context.Context) (int, error)
	Close()
	OnDisconnect(fn func()) func()
}

const help = "commands: /who /status /rejoin /leave /delete /quit"

// Console renders the session store and turns input lines into session calls.
type Console struct {
	sess  Session
	store *session.Store
	out   io.Writer
	log   *zerolog.Logger

	mu         sync.Mutex
	printedIDs []string
	lastOnline string
}

// New builds a console writing to out.
func New(sess Session, store *session.Store, out io.Writer, logger *zerolog.Logger) *Console {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Console{sess: sess, store: store, out: out, log: logger}
}

// Run joins (asking for a name when none is stored) and processes input until
// the user leaves, deletes the account, quits or the input runs dry.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	off := c.store.OnChange(c.render)
	defer off()
	offHangup := c.sess.OnDisconnect(func() {
		c.printf("* connection lost, type /rejoin to reconnect\n")
	})
	defer offHangup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, in)

	for {
		if c.store.Identity() == "" {
			name, ok := next(ctx, lines, func() { c.printf("Choose a username: ") })
			if !ok {
				return ctx.Err()
			}
			if err := c.store.SetIdentity(name); err != nil {
				continue
			}
		}

		err := c.sess.Start(ctx)
		var rejected *client.JoinRejectedError
		switch {
		case err == nil:
		case errors.As(err, &rejected):
			c.printf("%s\n", rejected.Reason)
			continue
		default:
			c.printf("could not join: %v\n", err)
			return err
		}

		c.printf("joined as %s. %s\n", c.store.Identity(), help)
		return c.chat(ctx, lines)
	}
}

func (c *Console) chat(ctx context.Context, lines <-chan string) error {
	for {
		line, ok := next(ctx, lines, nil)
		if !ok {
			c.sess.Close()
			return ctx.Err()
		}

		switch strings.TrimSpace(line) {
		case "/who":
			c.printf("online: %s\n", strings.Join(c.store.Online(), ", "))
		case "/status":
			c.printStatus()
		case "/rejoin":
			err := c.sess.Start(ctx)
			var rejected *client.JoinRejectedError
			switch {
			case err == nil:
				c.printf("rejoined as %s\n", c.store.Identity())
			case errors.As(err, &rejected):
				c.printf("%s\n", rejected.Reason)
				return nil
			default:
				c.printf("could not rejoin: %v\n", err)
			}
		case "/leave":
			if err := c.sess.Leave(ctx); err != nil {
				c.log.Warn().Err(err).Msg("leave")
			}
			c.printf("left the chat\n")
			return nil
		case "/delete":
			removed, err := c.sess.DeleteAccount(ctx)
			if err != nil {
				c.log.Warn().Err(err).Msg("delete account")
				c.printf("account removed locally; server did not confirm\n")
				return nil
			}
			c.printf("account deleted, %d messages removed\n", removed)
			return nil
		case "/quit":
			c.sess.Close()
			return nil
		case "/help":
			c.printf("%s\n", help)
		default:
			if err := c.sess.Send(ctx, line); err != nil {
				c.printf("send failed: %v\n", err)
			}
		}
	}
}

// render prints whatever the store gained since the last call. It runs on
// the socket read goroutine.
func (c *Console) render() {
	msgs := c.store.Messages()
	online := strings.Join(c.store.Online(), ", ")

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case len(msgs) == 0:
		c.printedIDs = c.printedIDs[:0]
	case !extends(msgs, c.printedIDs):
		// The log was replaced, e.g. after an account deletion.
		fmt.Fprintln(c.out, "--- history ---")
		c.printedIDs = c.printedIDs[:0]
	}
	for _, m := range msgs[len(c.printedIDs):] {
		fmt.Fprintln(c.out, formatMessage(m))
		c.printedIDs = append(c.printedIDs, m.ID)
	}

	if online != c.lastOnline {
		if online != "" {
			fmt.Fprintf(c.out, "* online: %s\n", online)
		}
		c.lastOnline = online
	}
}

// extends reports whether msgs starts with exactly the already printed messages.
func extends(msgs []proto.Message, printed []string) bool {
	if len(msgs) < len(printed) {
		return false
	}
	for i, id := range printed {
		if msgs[i].ID != id {
			return false
		}
	}
	return true
}

func (c *Console) printStatus() {
	view := c.store.View()
	if len(view.Statuses) == 0 && len(view.Announcements) == 0 {
		c.printf("no status updates\n")
		return
	}
	for _, m := range view.Statuses {
		c.printf("  %s\n", m.Text)
	}
	for _, m := range view.Announcements {
		c.printf("  [%s] %s\n", clock(m.TS), m.Text)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func formatMessage(m proto.Message) string {
	if m.IsSystem() {
		return fmt.Sprintf("[%s] * %s", clock(m.TS), m.Text)
	}
	return fmt.Sprintf("[%s] %s: %s", clock(m.TS), m.Username, m.Text)
}

func clock(ms int64) string {
	return time.UnixMilli(ms).Format("15:04")
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
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
	return lines
}

// next waits for an input line; prompt, if set, is printed first.
func next(ctx context.Context, lines <-chan string, prompt func()) (string, bool) {
	if prompt != nil {
		prompt()
	}
	select {
	case line, ok := <-lines:
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}
