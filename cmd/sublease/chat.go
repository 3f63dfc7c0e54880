package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/easylease/sublease/internal/chatclient"
	"github.com/easylease/sublease/internal/conversation"
)

func runChat(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	addr := fs.String("addr", getEnv("SUBLEASE_CHAT_ADDR", "localhost:50051"), "chat service address")
	useTLS := fs.Bool("tls", false, "connect with TLS")
	email := fs.String("email", os.Getenv("SUBLEASE_EMAIL"), "account email")
	password := fs.String("password", os.Getenv("SUBLEASE_PASSWORD"), "account password")
	token := fs.String("token", os.Getenv("SUBLEASE_TOKEN"), "token from an earlier login")
	peer := fs.String("peer", "", "user id to chat with")
	listingID := fs.String("listing", "", "listing the conversation is about")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *peer == "" {
		return errors.New("-peer is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := chatclient.Dial(*addr, *useTLS)
	if err != nil {
		return err
	}
	defer conn.Close()

	client := chatclient.New(conn)
	var session conversation.Session
	if *token != "" {
		session, err = client.UseToken(*token)
	} else {
		session, err = client.Login(ctx, *email, *password)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	r := conversation.NewReconciler(session, client, client, conversation.NewInbox(client))
	v := newChatView(out, session.UserID)

	changes := make(chan struct{}, 1)
	r.OnChange = func(string) {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	// subscribe before loading history so a message sent in between is
	// still pushed
	stream, err := client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	go func() {
		if err := r.Run(ctx, stream); err != nil && ctx.Err() == nil {
			fmt.Fprintf(out, "! realtime updates stopped: %v\n", err)
		}
	}()

	history, err := r.Open(ctx, *peer)
	if err != nil {
		return err
	}
	v.render(history)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				v.render(r.Messages(*peer))
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(ctx, r, v, *peer, *listingID, line); quit {
				return nil
			}
		}
	}
}

// handleLine runs one line of input. It reports whether the user asked to
// quit.
func handleLine(ctx context.Context, r *conversation.Reconciler, v *chatView, peer, listingID, line string) bool {
	switch strings.TrimSpace(line) {
	case "":
		return false
	case "/quit":
		return true
	case "/retry":
		failed := r.Failed()
		if len(failed) == 0 {
			v.notice("nothing to retry")
		}
		for _, m := range failed {
			if _, err := r.Retry(ctx, m.CorrelationID); err != nil {
				v.notice(fmt.Sprintf("retry failed: %v", err))
			}
		}
		return false
	case "/inbox":
		if _, err := r.Inbox().Refresh(ctx); err != nil {
			v.notice(fmt.Sprintf("inbox: %v", err))
			return false
		}
		v.inbox(r.Inbox().Entries())
		return false
	}

	if _, err := r.Compose(ctx, peer, listingID, line); err != nil {
		v.notice(err.Error())
	}
	return false
}

// chatView prints each message once per state it reaches: sending,
// delivered or failed.
type chatView struct {
	mu    sync.Mutex
	out   io.Writer
	self  string
	shown map[string]string
}

func newChatView(out io.Writer, self string) *chatView {
	return &chatView{out: out, self: self, shown: make(map[string]string)}
}

func state(m conversation.Message) string {
	switch {
	case m.Failed:
		return "failed"
	case m.Pending:
		return "sending"
	}
	return "sent"
}

func (v *chatView) render(msgs []conversation.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range msgs {
		st := state(m)
		if v.shown[m.CorrelationID] == st {
			continue
		}
		first := v.shown[m.CorrelationID] == ""
		v.shown[m.CorrelationID] = st

		who := "them"
		if m.SenderID == v.self {
			who = "you"
		}
		if first {
			line := fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Local().Format("Jan 2 15:04"), who, m.Content)
			if st != "sent" {
				line += " (" + st + ")"
			}
			fmt.Fprintln(v.out, line)
			continue
		}
		switch st {
		case "failed":
			fmt.Fprintf(v.out, "  failed: %s (type /retry to resend)\n", m.Content)
		case "sending":
			fmt.Fprintf(v.out, "  resending: %s\n", m.Content)
		default:
			fmt.Fprintf(v.out, "  delivered: %s\n", m.Content)
		}
	}
}

func (v *chatView) notice(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "! %s\n", s)
}

func (v *chatView) inbox(entries []conversation.Summary) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(entries) == 0 {
		fmt.Fprintln(v.out, "inbox is empty")
		return
	}
	for _, e := range entries {
		name := strings.TrimSpace(e.Peer.FirstName + " " + e.Peer.LastName)
		if name == "" {
			name = e.Peer.ID
		}
		fmt.Fprintf(v.out, "%-24s %s  %s\n", name, e.LastActivity.Local().Format("Jan 2 15:04"), e.LastMessage.Content)
	}
}
