package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/source"
)

var replCommands = []string{
	"/state      show the current conversation state",
	"/reminders  list saved reminders",
	"/reset      drop the current draft",
	"/help       show this help",
	"/quit       exit",
}

type lineReader interface {
	Readline() (string, error)
}

type repl struct {
	engine *conversation.Engine
	db     *database.DB
	userID string
	out    io.Writer
}

func (r *repl) key() string {
	return source.UserKey(source.SourceTypeAPI, r.userID)
}

// run reads lines until /quit or end of input
func (r *repl) run(in lineReader) error {
	fmt.Fprintln(r.out, "Tell me what to remind you about. /help for commands.")

	for {
		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := r.command(line); quit {
				return nil
			}
			continue
		}

		res := r.engine.Handle(context.Background(), conversation.Message{UserID: r.key(), Text: line})
		fmt.Fprintf(r.out, "alfred> %s\n", res.Reply.Text)
	}
}

func (r *repl) command(line string) bool {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(r.out, "commands:")
		for _, cmd := range replCommands {
			fmt.Fprintf(r.out, "  %s\n", cmd)
		}
	case "/state":
		info, ok := r.engine.Store().Snapshot(r.key())
		if !ok {
			fmt.Fprintln(r.out, "idle (no session)")
			return false
		}
		data, _ := json.MarshalIndent(info, "", "  ")
		fmt.Fprintln(r.out, string(data))
	case "/reset":
		r.engine.Store().Forget(r.key())
		fmt.Fprintln(r.out, "draft dropped")
	case "/reminders":
		reminders, err := r.db.ListRemindersByUser(r.key(), nil)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			return false
		}
		if len(reminders) == 0 {
			fmt.Fprintln(r.out, "no reminders yet")
		}
		for _, rem := range reminders {
			fmt.Fprintf(r.out, "  %s %s  %-9s %s\n", rem.Date, rem.Time, rem.Status, rem.Title)
		}
	default:
		fmt.Fprintf(r.out, "unknown command %s\n", line)
	}
	return false
}
