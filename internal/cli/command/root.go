package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/redikv/redikv-go/internal/cli/client"
	"github.com/redikv/redikv-go/internal/cli/repl"
	"github.com/redikv/redikv-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "redikv-cli",
		Usage:   "redikv command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			getCommand(),
			setCommand(),
			infoCommand(),
			memoryCommand(),
			saveCommand(),
			pingCommand(),
		},
		// No subcommand starts the interactive loop.
		Action: runREPL,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "redikv server address",
			EnvVars: []string{"REDIKV_SERVER"},
			Value:   "127.0.0.1:6379",
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Aliases: []string{"t"},
			Usage:   "request timeout",
			Value:   client.DefaultTimeout,
		},
	}
}

func dial(c *cli.Context) (*client.Client, error) {
	return client.Dial(c.String("server"), c.Duration("timeout"))
}

// runOne dials, runs one command, prints the reply, and exits non-zero on
// error replies so scripts can branch on the result.
func runOne(c *cli.Context, args ...string) error {
	conn, err := dial(c)
	if err != nil {
		return err
	}
	defer conn.Close()

	reply, err := conn.DoStrings(args...)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, client.FormatReply(reply))
	if reply.IsError() {
		return cli.Exit("", 1)
	}
	return nil
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the value of a key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("get requires exactly one key")
			}
			return runOne(c, "GET", c.Args().Get(0))
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Set a key to a value",
		ArgsUsage: "KEY VALUE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("set requires a key and a value")
			}
			return runOne(c, "SET", c.Args().Get(0), c.Args().Get(1))
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show server information",
		Action: func(c *cli.Context) error {
			conn, err := dial(c)
			if err != nil {
				return err
			}
			defer conn.Close()

			reply, err := conn.DoStrings("INFO")
			if err != nil {
				return err
			}
			if reply.IsError() {
				return cli.Exit(client.FormatReply(reply), 1)
			}
			// INFO bodies are multi-line text; print them raw.
			fmt.Fprint(c.App.Writer, string(reply.Bulk))
			return nil
		},
	}
}

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Show tracked memory usage in bytes",
		Action: func(c *cli.Context) error {
			return runOne(c, "MEMORY")
		},
	}
}

func saveCommand() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Trigger a snapshot on the server",
		Action: func(c *cli.Context) error {
			return runOne(c, "SAVE")
		},
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "Ping the server",
		ArgsUsage: "[MESSAGE]",
		Action: func(c *cli.Context) error {
			args := []string{"PING"}
			if c.NArg() > 0 {
				args = append(args, c.Args().Get(0))
			}
			return runOne(c, args...)
		},
	}
}

func runREPL(c *cli.Context) error {
	addr := c.String("server")
	timeout := c.Duration("timeout")

	conn, err := client.Dial(addr, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Fprintf(c.App.Writer, "Connected to %s\n", addr)

	loop := repl.New(func(args []string) (string, error) {
		// Reconnect transparently if the previous command lost the
		// connection (QUIT, server restart, timeout).
		reply, err := conn.DoStrings(args...)
		if err != nil {
			fresh, dialErr := client.Dial(addr, timeout)
			if dialErr != nil {
				return "", err
			}
			conn.Close()
			conn = fresh
			reply, err = conn.DoStrings(args...)
			if err != nil {
				return "", err
			}
		}
		return client.FormatReply(reply), nil
	}, repl.WithOutput(c.App.Writer))

	return loop.Run()
}
