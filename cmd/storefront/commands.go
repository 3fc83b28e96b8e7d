package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jrsteele09/go-storefront-client/collections"
	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/jrsteele09/go-storefront-client/session"
	"github.com/jrsteele09/go-storefront-client/storefront"
	"github.com/pkg/errors"
)

const passwordEnvVar = "STOREFRONT_PASSWORD"

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: storefront %s\n", usages[name])
		fs.PrintDefaults()
	}
	return fs
}

// password falls back to STOREFRONT_PASSWORD so it stays out of shell history.
func password(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(passwordEnvVar)
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	pw := fs.String("password", "", "account password (or "+passwordEnvVar+")")
	if err := fs.Parse(args); err != nil {
		return err
	}

	state, err := a.sf.Login(ctx, session.LoginCredentials{Email: *email, Password: password(*pw)})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", displayName(state.User))
	if state.Degraded {
		fmt.Fprintln(a.out, "warning: the session could not be saved and will not survive this command")
	}
	printSummary(a.out, a.sf.State())
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	pw := fs.String("password", "", "account password (or "+passwordEnvVar+")")
	confirm := fs.String("confirm", "", "password confirmation, defaults to the password")
	role := fs.String("role", "", "student or instructor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data := session.RegistrationData{
		Name:            *name,
		Email:           *email,
		Password:        password(*pw),
		ConfirmPassword: *confirm,
		Role:            *role,
	}
	if data.ConfirmPassword == "" {
		data.ConfirmPassword = data.Password
	}
	state, err := a.sf.Register(ctx, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", displayName(state.User))
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.sf.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func runWhoAmI(_ context.Context, a *app, _ []string) error {
	state := a.sf.Session().State()
	if !state.IsAuthenticated() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	printUser(a.out, state.User)
	if !state.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "Token expires %s\n", state.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	if a.sf.Session().TokenExpired() {
		fmt.Fprintln(a.out, "The token has expired; run `storefront refresh` or sign in again")
	}
	return nil
}

func runProfile(ctx context.Context, a *app, _ []string) error {
	if err := requireSession(a); err != nil {
		return err
	}
	user, err := a.sf.Session().Profile(ctx)
	if err != nil {
		return err
	}
	printUser(a.out, user)
	return nil
}

func runRefresh(ctx context.Context, a *app, _ []string) error {
	state, err := a.sf.Session().Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Session refreshed for %s\n", displayName(state.User))
	return nil
}

func runCourses(ctx context.Context, a *app, _ []string) error {
	courses, err := a.sf.Courses(ctx)
	if err != nil {
		return err
	}
	printCourses(a.out, courses)
	return nil
}

func runCart(ctx context.Context, a *app, args []string) error {
	sub, id, err := subcommand("cart", args)
	if err != nil {
		return err
	}
	if err := requireSession(a); err != nil {
		return err
	}

	cart := a.sf.Cart()
	var state collections.State
	switch sub {
	case "list":
		state = cart.State()
	case "add":
		state, err = cart.Add(ctx, id)
	case "remove":
		state, err = cart.Remove(ctx, id)
	case "clear":
		state, err = cart.Clear(ctx)
	case "move":
		var snap storefront.Snapshot
		snap, err = a.sf.MoveToWishlist(ctx, id)
		state = snap.Cart
	default:
		return errors.Errorf("unknown cart command %q", sub)
	}
	if err != nil {
		return err
	}
	printCollection(a.out, "Cart", state, true)
	return nil
}

func runWishlist(ctx context.Context, a *app, args []string) error {
	sub, id, err := subcommand("wishlist", args)
	if err != nil {
		return err
	}
	if err := requireSession(a); err != nil {
		return err
	}

	wishlist := a.sf.Wishlist()
	var state collections.State
	switch sub {
	case "list":
		state = wishlist.State()
	case "add":
		state, err = wishlist.Add(ctx, id)
	case "remove":
		state, err = wishlist.Remove(ctx, id)
	case "toggle":
		var added bool
		state, added, err = wishlist.Toggle(ctx, id)
		if err == nil && added {
			fmt.Fprintln(a.out, "Added to wishlist")
		} else if err == nil {
			fmt.Fprintln(a.out, "Removed from wishlist")
		}
	case "move":
		var snap storefront.Snapshot
		snap, err = a.sf.MoveToCart(ctx, id)
		state = snap.Wishlist
	default:
		return errors.Errorf("unknown wishlist command %q", sub)
	}
	if err != nil {
		return err
	}
	printCollection(a.out, "Wishlist", state, false)
	return nil
}

func runDoctor(ctx context.Context, a *app, _ []string) error {
	fmt.Fprintf(a.out, "API:         %s\n", a.cfg.GetAPIBaseURL())
	fmt.Fprintf(a.out, "Credentials: %s\n", a.cfg.GetCredentialStore())

	env, err := a.sf.Health(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Health:      unreachable (%s)\n", describe(err))
	} else {
		fmt.Fprintf(a.out, "Health:      ok (%s)\n", env.Message)
	}

	state := a.sf.Session().State()
	if state.IsAuthenticated() {
		fmt.Fprintf(a.out, "Session:     signed in as %s\n", displayName(state.User))
	} else {
		fmt.Fprintln(a.out, "Session:     anonymous")
	}
	return err
}

// subcommand splits "add <id>" style arguments. list is the default.
func subcommand(name string, args []string) (string, string, error) {
	if len(args) == 0 {
		return "list", "", nil
	}
	sub := args[0]
	switch sub {
	case "list", "clear":
		return sub, "", nil
	}
	if len(args) < 2 {
		return "", "", errors.Errorf("usage: storefront %s", usages[name])
	}
	return sub, args[1], nil
}

// requireSession fails early, and reports an expiry noticed while the
// collections loaded at start-up.
func requireSession(a *app) error {
	state := a.sf.Session().State()
	if state.IsAuthenticated() {
		return nil
	}
	if state.Error != "" {
		return errors.New(state.Error)
	}
	return errors.Wrap(apperrors.ErrNotSignedIn, "run `storefront login` first")
}

// describe turns err into the message a user should see.
func describe(err error) string {
	var ve *apperrors.ValidationError
	var httpErr *apperrors.HTTPError
	switch {
	case apperrors.As(err, &ve):
		return ve.Message
	case apperrors.Is(err, apperrors.ErrAlreadyInCollection):
		return err.Error()
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		return "Session expired. Please login again."
	case apperrors.Is(err, apperrors.ErrNetworkUnavailable):
		return "Unable to reach the server. Please check your connection."
	case apperrors.As(err, &httpErr):
		return httpErr.Message
	}
	return err.Error()
}
