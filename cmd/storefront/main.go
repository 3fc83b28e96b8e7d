// Command storefront is a terminal client for the course storefront API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-storefront-client/internal/config"
	"github.com/jrsteele09/go-storefront-client/internal/logging"
	"github.com/jrsteele09/go-storefront-client/storefront"
)

// app is what every sub-command runs against.
type app struct {
	cfg config.Config
	sf  *storefront.Storefront
	out io.Writer
}

type runFunc func(ctx context.Context, a *app, args []string) error

var commands = map[string]runFunc{
	"login":    runLogin,
	"register": runRegister,
	"logout":   runLogout,
	"whoami":   runWhoAmI,
	"profile":  runProfile,
	"refresh":  runRefresh,
	"courses":  runCourses,
	"cart":     runCart,
	"wishlist": runWishlist,
	"doctor":   runDoctor,
}

var usages = map[string]string{
	"login":    "login -email <email> [-password <password>]",
	"register": "register -name <name> -email <email> [-password <password>] [-role student|instructor]",
	"logout":   "logout",
	"whoami":   "whoami",
	"profile":  "profile",
	"refresh":  "refresh",
	"courses":  "courses",
	"cart":     "cart [list|add <id>|remove <id>|clear|move <id>]",
	"wishlist": "wishlist [list|add <id>|remove <id>|toggle <id>|move <id>]",
	"doctor":   "doctor",
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return 0
	}
	runCommand, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	cfg := config.New()
	logging.Setup(stderr, cfg.GetEnv(), cfg.GetLogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sf, err := storefront.Initialize(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer sf.Close()

	a := &app{cfg: cfg, sf: sf, out: stdout}
	if err := runCommand(ctx, a, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %s\n", describe(err))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprint(w, figure.NewFigure("storefront", "cybermedium", true).String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	names := make([]string, 0, len(usages))
	for name := range usages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  storefront %s\n", usages[name])
	}
}
