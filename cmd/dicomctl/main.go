package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jas88/sharpdicom/cmd/dicomctl/cmd"
	"github.com/jas88/sharpdicom/internal/logging"
)

var GitSHA string = "NA"

func main() {
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()
	go func() {
		defer cnc() // removes the signal handler so a second ctrl-c force-kills
		<-ctx.Done()
	}()
	slog.SetDefault(logging.Logger(os.Stdout, false, slog.LevelInfo))
	ctx = logging.AppendCtx(ctx,
		slog.Group("sharpdicom",
			slog.String("name", "dicomctl"),
			slog.String("git", GitSHA),
		))
	cmd.NewRoot(ctx, GitSHA).Execute()
}
