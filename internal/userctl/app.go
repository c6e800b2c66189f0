package userctl

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

type App struct {
	client *Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(serverAddr string) *App {
	return &App{
		client: NewClient(serverAddr),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run dispatches a single subcommand: register, login, me, list, get or
// delete.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return fmt.Errorf("no command given")
	}

	switch args[0] {
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "me":
		return a.me(ctx, args[1:])
	case "list":
		return a.list(ctx, args[1:])
	case "get":
		return a.get(ctx, args[1:])
	case "delete":
		return a.delete(ctx, args[1:])
	default:
		a.usage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "usage: userctl [-a address] <register|login|me|list|get|delete>")
}

func (a *App) register(ctx context.Context) error {
	username, err := a.prompt("Enter user name")
	if err != nil {
		return err
	}
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	acc, err := a.client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered account %d (%s)\n", acc.ID, acc.Username)
	return nil
}

func (a *App) login(ctx context.Context) error {
	email, err := a.prompt("Enter email")
	if err != nil {
		return err
	}
	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	reply, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s (id %d)\n", reply.Username, reply.ID)
	fmt.Fprintf(a.out, "Access token: %s\n", reply.AccessToken)
	return nil
}

func (a *App) me(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("me", flag.ContinueOnError)
	token := fs.String("token", "", "access token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	acc, err := a.client.Me(ctx, *token)
	if err != nil {
		return err
	}

	a.printAccount(acc)
	return nil
}

func (a *App) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	accounts, err := a.client.List(ctx, *page)
	if err != nil {
		return err
	}

	for _, acc := range accounts {
		a.printAccount(&acc)
	}
	return nil
}

func (a *App) get(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	acc, err := a.client.Get(ctx, id)
	if err != nil {
		return err
	}

	a.printAccount(acc)
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}

	if err := a.client.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Deleted account %d\n", id)
	return nil
}

func (a *App) printAccount(acc *Account) {
	status := "active"
	if acc.Locked {
		status = "locked"
	}
	fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\n", acc.ID, acc.Username, acc.Email, status)
}

func (a *App) prompt(text string) (string, error) {
	if _, err := fmt.Fprint(a.out, text+"\n> "); err != nil {
		return "", err
	}
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) promptPassword() (string, error) {
	if _, err := fmt.Fprint(a.out, "Enter password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("account id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id: %s", args[0])
	}
	return id, nil
}
