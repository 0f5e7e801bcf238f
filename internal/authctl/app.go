// Package authctl implements the operator command line for the credential
// subsystem. It talks to the database directly through the same services
// the server uses, so an operator can register accounts, check credentials
// and revoke sessions without a running transport.
package authctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emsuite/authcore/internal/common"
	"github.com/emsuite/authcore/internal/server"
	"github.com/emsuite/authcore/internal/server/config"
	"github.com/emsuite/authcore/internal/server/models"
	"github.com/emsuite/authcore/internal/server/services"
)

// actor recorded in audit fields for every mutation made from this tool.
const actor = "authctl"

type App struct {
	auth   *services.AuthService
	reader *bufio.Reader
	out    io.Writer
}

// NewApp builds the CLI on top of the server wiring.
func NewApp(cfg *config.Config) (*App, error) {
	srv, err := server.NewApp(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		auth:   srv.Auth(),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

// Run starts the command loop and returns when the operator exits or
// stdin closes.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "authctl (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Fprint(a.out, "authctl> ")
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			fmt.Fprintln(a.out, "Available commands: register, login, refresh, revoke, deactivate, exit")
		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "refresh":
			a.refresh(ctx)
		case "revoke":
			a.revoke(ctx)
		case "deactivate":
			a.deactivate(ctx)
		case "exit", "quit":
			return
		default:
			fmt.Fprintf(a.out, "unknown command %q\n", parts[0])
		}
	}
}

func (a *App) register(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	role, err := GetSimpleText(a.reader, "Enter role (user/admin, empty for user)", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	defer common.WipeByteArray(password)

	user, err := a.auth.Register(ctx, services.Registration{
		Username: username,
		Email:    email,
		Password: string(password),
		Role:     models.Role(role),
	}, actor)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	fmt.Fprintf(a.out, "registered %s (%s)\n", user.Username, user.ID)
}

func (a *App) login(ctx context.Context) {
	username, err := GetSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	password, err := GetPassword(a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	defer common.WipeByteArray(password)

	pair, err := a.auth.Login(ctx, username, string(password))
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	a.printPair(pair)
}

func (a *App) refresh(ctx context.Context) {
	raw, err := GetSimpleText(a.reader, "Enter refresh token", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}

	pair, err := a.auth.Refresh(ctx, raw)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	a.printPair(pair)
}

func (a *App) revoke(ctx context.Context) {
	raw, err := GetSimpleText(a.reader, "Enter refresh token", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}

	if err := a.auth.Logout(ctx, raw); err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	fmt.Fprintln(a.out, "revoked")
}

func (a *App) deactivate(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Enter user id", a.out)
	if err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}

	if err := a.auth.Deactivate(ctx, id, actor); err != nil {
		fmt.Fprintln(a.out, err.Error())
		return
	}
	fmt.Fprintln(a.out, "deactivated")
}

func (a *App) printPair(pair *services.TokenPair) {
	fmt.Fprintf(a.out, "access token:  %s\n", pair.AccessToken)
	fmt.Fprintf(a.out, "expires at:    %s\n", pair.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(a.out, "refresh token: %s\n", pair.RefreshToken)
}
