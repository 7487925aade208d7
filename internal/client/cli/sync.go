package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/farmadvisor/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/farmadvisor/internal/client/voice"
)

// Sync flushes the queue now.
func (a *App) Sync(ctx context.Context) error {
	rep, err := a.sync.Flush(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Delivered %d, failed %d, gave up %d, pending %d\n", rep.Delivered, rep.Failed, rep.Dead, rep.Pending)
	if rep.Interrupted {
		fmt.Fprintln(a.out, "Backend unavailable, remaining writes stay queued")
	}
	return nil
}

// Requeue gives dead tasks another round of attempts.
func (a *App) Requeue(ctx context.Context) error {
	n, err := a.sync.Requeue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Requeued %d task(s)\n", n)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	s := a.state.Snapshot()
	stats, err := a.sync.Stats(ctx)
	if err != nil {
		return err
	}

	last := "never"
	if a.meta != nil {
		v, err := metadata.GetString(ctx, a.meta, metadata.KeyLastSyncAt)
		if err != nil {
			return err
		}
		if t, perr := time.Parse(time.RFC3339Nano, v); perr == nil {
			last = t.Local().Format("2006-01-02 15:04:05")
		}
	}

	fmt.Fprintf(a.out, "Mode:      %s\n", s.Mode)
	fmt.Fprintf(a.out, "Language:  %s\n", s.Language)
	if s.User != "" {
		fmt.Fprintf(a.out, "User:      %s\n", s.User)
	}
	fmt.Fprintf(a.out, "View:      %s\n", s.View)
	fmt.Fprintf(a.out, "Queue:     %d pending, %d gave up\n", stats.Pending, stats.Dead)
	fmt.Fprintf(a.out, "Last sync: %s\n", last)
	if a.storage != nil {
		fmt.Fprintf(a.out, "Storage:   %s\n", describeStorage(a.storage))
	}
	if a.config != nil {
		fmt.Fprintf(a.out, "Backend:   %s (%s)\n", a.config.SyncEndpoint(), a.config.SyncTransport)
		fmt.Fprintf(a.out, "Proxy:     http://%s\n", a.config.ProxyListenAddr)
	}
	return nil
}

// Language shows the current language or switches to a supported one.
func (a *App) Language(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(a.out, "Language: %s (supported: %s)\n", a.state.Language(), strings.Join(voice.Languages, " "))
		return nil
	}

	code := strings.ToLower(args[0])
	supported := false
	for _, l := range voice.Languages {
		if l == code {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("unsupported language %q (supported: %s)", code, strings.Join(voice.Languages, " "))
	}
	if err := a.state.SetLanguage(ctx, code); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Language set to %s\n", code)
	return nil
}

func (a *App) User(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: user <name> | user -")
	}
	if len(args) == 1 && args[0] == "-" {
		if err := a.state.SetUser(ctx, ""); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Signed out")
		return nil
	}
	return a.state.SetUser(ctx, strings.Join(args, " "))
}

func (a *App) Backup(ctx context.Context) error {
	if a.backup == nil || !a.backup.Enabled() {
		fmt.Fprintln(a.out, "Backup is not configured (set FARM_S3_BUCKET and use a file database)")
		return nil
	}
	res, err := a.backup.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %d bytes to s3://%s/%s\n", res.Size, res.Bucket, res.Key)
	return nil
}

func describeStorage(s StorageInfo) string {
	if !s.Persistent() {
		return "memory only, changes are lost on exit"
	}
	return fmt.Sprintf("%s (schema v%d)", s.Path(), s.SchemaVersion())
}
