package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"chat-stream/backend/internal/model"
	"chat-stream/backend/internal/streamclient"
)

func main() {
	os.Exit(run())
}

func run() int {
	v := viper.New()
	flags := pflag.NewFlagSet("chat-cli", pflag.ContinueOnError)
	flags.String("server", "http://localhost:8000", "chat server base URL")
	flags.String("session-file", defaultSessionFile(), "file that remembers the current session id")
	flags.Bool("debug", false, "log skipped stream events and other diagnostics")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := v.BindPFlags(flags); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	level := slog.LevelWarn
	if v.GetBool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	c := &cli{
		client:      streamclient.New(v.GetString("server")),
		transcript:  streamclient.NewTranscript(),
		sessionFile: v.GetString("session-file"),
		out:         os.Stdout,
	}

	ctx := context.Background()
	if err := c.resume(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Fprintln(c.out, "Type a message. /new starts a new session, /history shows this one, /quit exits.")
	for {
		fmt.Fprint(c.out, "> ")
		select {
		case <-interrupts:
			fmt.Fprintln(c.out)
			return 0
		case line, ok := <-lines:
			if !ok {
				return 0
			}
			if quit := c.handle(ctx, strings.TrimSpace(line), interrupts); quit {
				return 0
			}
		}
	}
}

type cli struct {
	client      *streamclient.Client
	transcript  *streamclient.Transcript
	sessionID   string
	sessionFile string
	out         io.Writer
}

// resume continues the session remembered in the session file, or starts one.
func (c *cli) resume(ctx context.Context) error {
	data, err := os.ReadFile(c.sessionFile)
	switch {
	case err == nil && strings.TrimSpace(string(data)) != "":
		c.sessionID = strings.TrimSpace(string(data))
		messages, err := c.client.Messages(ctx, c.sessionID)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		c.transcript.Load(messages)
		fmt.Fprintf(c.out, "Resumed session %s (%d messages).\n", c.sessionID, len(messages))
		return nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read session file: %w", err)
	}
	return c.newSession(ctx)
}

func (c *cli) newSession(ctx context.Context) error {
	id, err := c.client.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.sessionFile), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(c.sessionFile, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.sessionID = id
	c.transcript.Load(nil)
	fmt.Fprintf(c.out, "Started session %s.\n", id)
	return nil
}

func (c *cli) handle(ctx context.Context, line string, interrupts <-chan os.Signal) bool {
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		return true
	case "/new":
		if err := c.newSession(ctx); err != nil {
			fmt.Fprintln(c.out, "error:", err)
		}
		return false
	case "/history":
		messages, err := c.client.Messages(ctx, c.sessionID)
		if err != nil {
			fmt.Fprintln(c.out, "error:", err)
			return false
		}
		c.transcript.Load(messages)
		printHistory(c.out, messages)
		return false
	}

	// Ctrl-C while a reply is streaming cancels only that reply.
	replyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-interrupts:
			cancel()
		case <-finished:
		}
	}()

	printed := 0
	_, err := c.client.Stream(replyCtx, c.transcript, c.sessionID, line, func(e streamclient.Entry) {
		switch e.State {
		case streamclient.StatePending:
			fmt.Fprint(c.out, "assistant: ")
		case streamclient.StateStreaming, streamclient.StateComplete:
			if len(e.Content) > printed {
				fmt.Fprint(c.out, e.Content[printed:])
				printed = len(e.Content)
			}
			if e.State == streamclient.StateComplete {
				fmt.Fprintln(c.out)
			}
		case streamclient.StateFailed:
			fmt.Fprintf(c.out, "\n[error] %s\n", e.Content)
		case streamclient.StateCanceled:
			fmt.Fprintln(c.out, " [canceled]")
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("Reply ended with error", "session_id", c.sessionID, "error", err)
	}
	return false
}

func printHistory(w io.Writer, messages []model.Message) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "(no messages yet)")
		return
	}
	for _, m := range messages {
		fmt.Fprintf(w, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), m.Role, m.Content)
	}
}

func defaultSessionFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "chat-cli", "session")
	}
	return ".chat-session"
}
