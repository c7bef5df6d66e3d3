package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pstuifzand/dtsedit/internal/socket"
)

func (c *cli) newServeCmd() *cobra.Command {
	var socketDir string
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Keep a file open and accept edits over a Unix socket",
		Long: `The serve command opens a file in an editing session that keeps its
undo history between edits. Other processes send commands with
'dtsedit send'. Edits are kept in memory until a save command arrives.

Example:
  dtsedit serve kona.dts &
  dtsedit send move --bin 0 --level 2 --to 0
  dtsedit send save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := c.openFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			srv, err := socket.NewServer(socketDir, os.Getpid(), c.logger)
			if err != nil {
				return err
			}
			srv.Start()
			defer srv.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c.printf("serving %s on %s\n", args[0], srv.SocketPath())
			err = s.Serve(ctx, srv)
			if errors.Is(err, context.Canceled) {
				if s.IsDirty() {
					c.printf("discarding unsaved edits\n")
				}
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&socketDir, "socket-dir", "", "Directory for the socket (default $XDG_RUNTIME_DIR/dtsedit)")
	return cmd
}

func (c *cli) newSendCmd() *cobra.Command {
	var (
		socketDir string
		msg       socket.Message
	)
	cmd := &cobra.Command{
		Use:   "send <command>",
		Short: "Send a command to a running 'dtsedit serve'",
		Long: `The send command passes one command to the most recently started
session. Commands: insert, add_top, add_bottom, duplicate, delete, move,
update_line, update_header, offset, set_property, undo, redo, save, text,
diff, history.

Example:
  dtsedit send delete --bin 0 --level 3
  dtsedit send offset --bin 0 --field qcom,gpu-freq --delta -10000000
  dtsedit send undo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, pid, err := socket.FindRunningInstance(socketDir)
			if err != nil {
				return err
			}
			c.logger.Debug("found running instance", "pid", pid, "socket", path)

			client, err := socket.NewClient(path)
			if err != nil {
				return err
			}
			msg.Command = args[0]
			resp, err := client.Send(msg)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(resp)
			}
			if !resp.Success {
				return fmt.Errorf("server error: %s", resp.Message)
			}
			if resp.Output != "" {
				fmt.Fprint(c.out, resp.Output)
				if resp.Output[len(resp.Output)-1] != '\n' {
					fmt.Fprintln(c.out)
				}
				return nil
			}
			c.printf("%s (version %d)\n", resp.Message, resp.Version)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&socketDir, "socket-dir", "", "Directory holding the session sockets")
	flags.IntVar(&msg.Bin, "bin", 0, "Bin index")
	flags.IntVar(&msg.Level, "level", 0, "Level index (source for move and duplicate)")
	flags.IntVar(&msg.To, "to", 0, "Target level index")
	flags.IntVar(&msg.Line, "line", 0, "Line or property index")
	flags.StringVar(&msg.Text, "text", "", "Property line, or newline separated lines for insert")
	flags.StringVar(&msg.Field, "field", "", "Field for offset")
	flags.Int64Var(&msg.Delta, "delta", 0, "Delta for offset")
	flags.StringVar(&msg.Path, "path", "", "Node path for set_property")
	return cmd
}
