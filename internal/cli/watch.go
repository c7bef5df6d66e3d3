package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pstuifzand/dtsedit/internal/app"
	"github.com/pstuifzand/dtsedit/internal/storage"
)

func (c *cli) newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-check a file every time it is saved",
		Long: `The watch command follows a file edited in another program. Every
save is parsed in the background and reported: the bins that changed since
the last good version, or the parse error that keeps the last good version
in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := c.openFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c.printf("watching %s (%s, %d bins)\n", args[0], s.Chip().Name, len(s.Snapshot().Bins))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			worker := app.NewWorker(c.logger)
			defer worker.Cancel()

			results := make(chan app.ParseResult)
			go func() {
				err := storage.Watch(ctx, args[0], debounce, func(text string, err error) {
					if err != nil {
						c.logger.Warn("watch", "error", err)
						return
					}
					go func() {
						if r, ok := <-worker.Submit(ctx, text); ok {
							select {
							case results <- r:
							case <-ctx.Done():
							}
						}
					}()
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					c.logger.Error("watch stopped", "error", err)
				}
				stop()
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case r := <-results:
					c.report(s, r)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", storage.DefaultDebounce, "Quiet period before a change is read")
	return cmd
}

// report applies a background parse to the session and prints the outcome
func (c *cli) report(s *app.Session, r app.ParseResult) {
	if err := s.ApplyParsed(r); err != nil {
		c.printf("[%s] kept last good version: %v\n", time.Now().Format("15:04:05"), err)
		return
	}
	results, err := s.Diff()
	if err != nil {
		c.printf("diff failed: %v\n", err)
		return
	}
	changed := 0
	for _, res := range results {
		if !res.IsGeneral() && len(res.GUIRelevant()) > 0 {
			changed++
		}
	}
	c.printf("[%s] %d bins changed since open (%s)\n", time.Now().Format("15:04:05"), changed, s.Chip().Name)
}
