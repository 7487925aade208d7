package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	LogActivity(ctx context.Context) error
	AddSoilSample(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Requeue(ctx context.Context) error
	Status(ctx context.Context) error
	Voice(ctx context.Context, utterance string) error
	Language(ctx context.Context, args []string) error
	User(ctx context.Context, args []string) error
	Backup(ctx context.Context) error
}

const helpText = `Available commands:
  log                          record today's field work
  soil                         record a soil test
  (l)ist [collection]          list records (default farmLogs)
  show <collection> <id>       show one record
  delete <collection> <id>     delete a record
  sync                         deliver queued writes now
  requeue                      retry tasks that gave up
  status                       connection, storage and queue
  voice <words> [| <alt>...]   run a spoken command, e.g. voice rice fertilizer
  lang [code]                  show or set the language (en hi bn te mr ta gu kn ml pa or)
  user <name> | user -         set the current user, or sign out
  backup                       upload a snapshot of the local store
  exit | quit                  leave the program`

// runREPL reads one command per line from reader and dispatches it to a.
// The loop ends on EOF or when the user types "exit" or "quit". The status
// prompt is written only when prompt is true.
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer, prompt bool) {
	for {
		if prompt {
			fmt.Fprintf(w, "farm %s> ", statusFn())
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
		case "log":
			cmdErr = a.LogActivity(ctx)
		case "soil":
			cmdErr = a.AddSoilSample(ctx)
		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "sync":
			cmdErr = a.Sync(ctx)
		case "requeue":
			cmdErr = a.Requeue(ctx)
		case "status":
			cmdErr = a.Status(ctx)
		case "voice":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: voice <words> [| <alternative> ...]")
				continue
			}
			cmdErr = a.Voice(ctx, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd)))
		case "lang":
			cmdErr = a.Language(ctx, args)
		case "user":
			cmdErr = a.User(ctx, args)
		case "backup":
			cmdErr = a.Backup(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", cmdErr)
		}
	}
}
