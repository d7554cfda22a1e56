package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/NicolasHaas/quizline/pkg/client"
	"github.com/NicolasHaas/quizline/pkg/crypto"
	"github.com/NicolasHaas/quizline/pkg/logging"
	"github.com/NicolasHaas/quizline/pkg/protocol"
	"github.com/NicolasHaas/quizline/pkg/version"
)

func main() {
	settingsFile := client.SettingsPath()
	settings := client.LoadSettings(settingsFile)

	addr := pflag.StringP("addr", "a", settings.Addr, "Server address")
	username := pflag.StringP("user", "u", settings.Username, "Player name (the server assigns one when empty)")
	password := pflag.String("password", "", "Password sent with the handshake")
	passphrase := pflag.String("passphrase", crypto.DefaultPassphrase, "Pre-shared secret for the line cipher")
	cipherName := pflag.String("cipher", settings.Cipher, "Line cipher: aes-cbc or xchacha20poly1305")
	logLevel := pflag.String("log-level", "warn", "Log level: "+logging.LevelNames())
	showVersion := pflag.BoolP("version", "v", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.Banner("quizline-client"))
		return
	}
	if err := logging.Setup(logging.Options{Level: *logLevel, Output: os.Stderr}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	suite, err := crypto.ParseSuite(*cipherName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	codec, err := crypto.NewCodec(*passphrase, suite)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, *addr, protocol.NewWire(codec))
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	settings.Addr, settings.Username, settings.Cipher = *addr, *username, suite.String()
	if err := settings.Save(settingsFile); err != nil {
		slog.Warn("save settings", "path", settingsFile, "err", err)
	}

	if err := runConsole(ctx, c, os.Stdin, os.Stdout, *username, *password); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runConsole logs in, prints server packages as they arrive and sends the
// commands typed on in until quit, EOF or a lost connection.
func runConsole(ctx context.Context, c *client.Client, in io.Reader, out io.Writer, username, password string) error {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	printer := newPrinter(out)
	c.SetHandler(func(p protocol.Package) {
		if s := render(p); s != "" {
			printer.println(s)
		}
	})
	c.StartReceiving()

	if err := c.Login(username, password); err != nil {
		return err
	}
	if interactive {
		printer.println("Connected. Type 'help' for a list of commands.")
	}

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
		case <-c.Done():
			printer.println("Disconnected from server.")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd, ok := parseCommand(line)
			if !ok {
				continue
			}
			quit, err := execute(c, cmd, printer)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

func execute(c *client.Client, cmd command, printer *printer) (quit bool, err error) {
	switch cmd.name {
	case "join":
		return false, c.Join()
	case "start":
		return false, c.Start()
	case "say":
		if cmd.arg == "" {
			printer.println("usage: say <text>")
			return false, nil
		}
		return false, c.Say(cmd.arg)
	case "choice":
		if cmd.arg == "" {
			printer.println("usage: choice <text>")
			return false, nil
		}
		return false, c.Choose(cmd.arg)
	case "help":
		printer.println(helpText)
		return false, nil
	case "quit":
		return true, nil
	default:
		printer.println(fmt.Sprintf("Command %q not found. Type '?' or 'help' for a list of commands.", cmd.name))
		return false, nil
	}
}
