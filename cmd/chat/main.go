// Command chat talks to the reminder assistant from a terminal. Reminders are
// saved to the local database.
//
// Usage:
//
//	go run ./cmd/chat -user alice -locale id
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"

	"github.com/omriShneor/reminder_agent/internal/config"
	"github.com/omriShneor/reminder_agent/internal/conversation"
	"github.com/omriShneor/reminder_agent/internal/database"
	"github.com/omriShneor/reminder_agent/internal/logger"
	"github.com/omriShneor/reminder_agent/internal/timeutil"
)

func main() {
	cfg := config.LoadFromEnv()

	user := flag.String("user", "local", "conversation user id")
	dbPath := flag.String("db", cfg.DBPath, "sqlite database path")
	locale := flag.String("locale", cfg.ReplyLocale, "reply language (en or id)")
	history := flag.String("history", filepath.Join(os.TempDir(), "alfred_chat_history"), "readline history file")
	verbose := flag.Bool("v", false, "log every turn")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger.Init(logger.Config{Level: level, Pretty: true, Output: os.Stderr})

	db, err := database.New(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	loc, _ := timeutil.ResolveLocation(cfg.Timezone)
	engine := conversation.NewEngine(conversation.NewStore(), conversation.Instrument(config.BackendSQLite, db),
		conversation.WithPhrasebook(conversation.PhrasebookFor(*locale)),
		conversation.WithClock(timeutil.In(loc)),
		conversation.WithLocation(loc),
	)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "you> ",
		HistoryFile:       *history,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "/quit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting readline: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	r := &repl{engine: engine, db: db, userID: *user, out: rl.Stdout()}
	if err := r.run(rl); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
