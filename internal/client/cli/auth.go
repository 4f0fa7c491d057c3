package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/boostauth/internal/client/client"
	"github.com/dmitrijs2005/boostauth/internal/common"
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in, use 'login' first")

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for name, email, phone and password, creates the account
// and keeps the returned session.
func (a *App) Register(ctx context.Context) error {
	var in client.RegisterInput
	var err error

	if in.Name, err = getSimpleText(a.reader, "Enter name", a.out); err != nil {
		return err
	}
	if in.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	if in.Phone, err = getSimpleText(a.reader, "Enter phone (10 digits)", a.out); err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	in.Password = string(password)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	token, err := a.session.Register(ctx, in)
	if err != nil {
		return err
	}

	a.setSession(token, in.Email)
	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for credentials and keeps the session on success.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	token, err := a.session.Login(ctx, email, string(password))
	if err != nil {
		return err
	}

	a.setSession(token, email)
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// GoogleLogin exchanges a pasted Google ID token for a session.
func (a *App) GoogleLogin(ctx context.Context) error {
	idToken, err := getSimpleText(a.reader, "Paste Google ID token", a.out)
	if err != nil {
		return err
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	token, err := a.session.GoogleLogin(ctx, idToken)
	if err != nil {
		return err
	}

	a.setSession(token, "")
	if acc, err := a.session.Me(ctx, token); err == nil {
		a.setSession(token, acc.Email)
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// Me prints the current account as returned by the HTTP API.
func (a *App) Me(ctx context.Context) error {
	token, _ := a.currentSession()
	if token == "" {
		return errNotLoggedIn
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	acc, err := a.session.Me(ctx, token)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.setSession("", "")
		}
		return err
	}

	fmt.Fprintf(a.out, "id:         %s\n", acc.ID)
	fmt.Fprintf(a.out, "email:      %s\n", acc.Email)
	fmt.Fprintf(a.out, "name:       %s\n", optional(acc.Name))
	fmt.Fprintf(a.out, "phone:      %s\n", optional(acc.Phone))
	fmt.Fprintf(a.out, "created at: %s\n", acc.CreatedAt.Local().Format(time.RFC1123))
	return nil
}

// WhoAmI prints the current account as returned by the gRPC API.
func (a *App) WhoAmI(ctx context.Context) error {
	token, _ := a.currentSession()
	if token == "" {
		return errNotLoggedIn
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	fields, err := a.probe.WhoAmI(ctx, token)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if v == nil {
			v = "-"
		}
		fmt.Fprintf(a.out, "%s: %v\n", k, v)
	}
	return nil
}

// Health prints the server's gRPC serving status.
func (a *App) Health(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	st, err := a.probe.Health(ctx)
	if err != nil {
		a.setMode(ModeOffline)
		return err
	}
	fmt.Fprintln(a.out, st)
	return nil
}

// Logout forgets the session token. Tokens are not revoked server-side.
func (a *App) Logout(context.Context) error {
	a.setSession("", "")
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
