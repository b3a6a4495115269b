package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"

	"github.com/opus-domini/mergington/internal/client"
	"github.com/opus-domini/mergington/internal/config"
	"github.com/opus-domini/mergington/internal/registry"
	"github.com/opus-domini/mergington/internal/store"
)

type activityClient interface {
	List() (map[string]registry.Activity, error)
	Signup(activity, email string) (string, error)
	Unregister(activity, email string) (string, error)
	Journal(query store.EnrollmentQuery) ([]store.Enrollment, error)
}

var (
	serveFn          = serve
	loadConfigFn     = config.Load
	currentVersionFn = currentVersion
	newClientFn      = func(baseURL string) activityClient {
		return client.New(baseURL, client.DefaultTimeout)
	}
)

const (
	cmdHelp       = "help"
	flagHelpShort = "-h"
	flagHelpLong  = "--help"
)

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func writeln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

func runCLI(args []string, stdout, stderr io.Writer) int {
	ctx := commandContext{stdout: stdout, stderr: stderr}

	if len(args) == 0 {
		return serveFn()
	}

	switch args[0] {
	case "-v", "--version", "version":
		writef(stdout, "mergington version %s\n", currentVersionFn())
		return 0
	case "serve":
		return runServeCommand(ctx, args[1:])
	case "list":
		return runListCommand(ctx, args[1:])
	case registry.ActionSignup:
		return runRosterCommand(ctx, registry.ActionSignup, args[1:])
	case registry.ActionUnregister:
		return runRosterCommand(ctx, registry.ActionUnregister, args[1:])
	case "journal":
		return runJournalCommand(ctx, args[1:])
	case cmdHelp, flagHelpShort, flagHelpLong:
		printRootHelp(stdout)
		return 0
	default:
		if strings.HasPrefix(args[0], "-") {
			return runServeCommand(ctx, args)
		}
		writef(stderr, "unknown command: %s\n\n", args[0])
		printRootHelp(stderr)
		return 2
	}
}

func runServeCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printServeHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printServeHelp(ctx.stderr)
		return 2
	}
	return serveFn()
}

func runListCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	server := fs.String("server", "", "server base URL (defaults to the configured listen address)")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printListHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 1 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args()[1:], " "))
		printListHelp(ctx.stderr)
		return 2
	}

	activities, err := newClientFn(resolveServer(*server)).List()
	if err != nil {
		writef(ctx.stderr, "list failed: %v\n", err)
		return 1
	}

	names := make([]string, 0, len(activities))
	for name := range activities {
		names = append(names, name)
	}
	sort.Strings(names)
	if fs.NArg() == 1 {
		only := fs.Arg(0)
		if _, ok := activities[only]; !ok {
			writef(ctx.stderr, "activity not found: %s\n", only)
			return 1
		}
		names = []string{only}
	}

	for i, name := range names {
		if i > 0 {
			writeln(ctx.stdout)
		}
		printActivity(ctx.stdout, name, activities[name])
	}
	return 0
}

func printActivity(w io.Writer, name string, a registry.Activity) {
	participants := "-"
	if len(a.Participants) > 0 {
		participants = strings.Join(a.Participants, ", ")
	}
	printHeading(w, name)
	printRows(w, []outputRow{
		{Key: "description", Value: a.Description},
		{Key: "schedule", Value: a.Schedule},
		{Key: rowEnrolled, Value: fmt.Sprintf("%d/%d", len(a.Participants), a.MaxParticipants)},
		{Key: "participants", Value: participants},
	})
}

func runRosterCommand(ctx commandContext, action string, args []string) int {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	server := fs.String("server", "", "server base URL (defaults to the configured listen address)")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printRosterHelp(ctx.stdout, action)
		return 0
	}
	if fs.NArg() != 2 {
		writeln(ctx.stderr, "activity and email are required")
		printRosterHelp(ctx.stderr, action)
		return 2
	}

	c := newClientFn(resolveServer(*server))
	call := c.Signup
	if action == registry.ActionUnregister {
		call = c.Unregister
	}
	message, err := call(fs.Arg(0), fs.Arg(1))
	if err != nil {
		writef(ctx.stderr, "%s failed: %v\n", action, err)
		return 1
	}
	printNotice(ctx.stdout, message)
	return 0
}

func runJournalCommand(ctx commandContext, args []string) int {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	fs.SetOutput(ctx.stderr)
	server := fs.String("server", "", "server base URL (defaults to the configured listen address)")
	activity := fs.String("activity", "", "only entries for this activity")
	email := fs.String("email", "", "only entries for this email")
	limit := fs.Int("limit", 20, "maximum entries to print")
	help := fs.Bool("help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *help {
		printJournalHelp(ctx.stdout)
		return 0
	}
	if fs.NArg() > 0 {
		writef(ctx.stderr, "unexpected argument(s): %s\n", strings.Join(fs.Args(), " "))
		printJournalHelp(ctx.stderr)
		return 2
	}
	if *limit <= 0 {
		writeln(ctx.stderr, "limit must be > 0")
		return 2
	}

	entries, err := newClientFn(resolveServer(*server)).Journal(store.EnrollmentQuery{
		Activity: *activity,
		Email:    *email,
		Limit:    *limit,
	})
	if err != nil {
		writef(ctx.stderr, "journal failed: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		writeln(ctx.stdout, "no journal entries found")
		return 0
	}
	for _, e := range entries {
		writef(ctx.stdout, "%s\t%s\t%s\t%s\n", e.CreatedAt, e.Action, e.Activity, e.Email)
	}
	return 0
}

// resolveServer picks the explicit URL or derives one from the configured
// listen address.
func resolveServer(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return serverURL(loadConfigFn().ListenAddr)
}

func serverURL(listen string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(listen))
	if err != nil {
		return "http://" + config.DefaultListenAddr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "http://" + config.DefaultListenAddr
	}
	return "http://" + net.JoinHostPort(host, port)
}

func printRootHelp(w io.Writer) {
	writeln(w, "Mergington activities command-line interface")
	writeln(w, "")
	writeln(w, "Usage:")
	writeln(w, "  mergington [serve]")
	writeln(w, "  mergington list [-server URL] [ACTIVITY]")
	writeln(w, "  mergington signup [-server URL] ACTIVITY EMAIL")
	writeln(w, "  mergington unregister [-server URL] ACTIVITY EMAIL")
	writeln(w, "  mergington journal [-server URL] [-activity NAME] [-email EMAIL] [-limit 20]")
	writeln(w, "")
	writeln(w, "Commands:")
	writeln(w, "  serve       Start the activities HTTP server (default)")
	writeln(w, "  list        Show activities and their participants")
	writeln(w, "  signup      Sign a student up for an activity")
	writeln(w, "  unregister  Remove a student from an activity")
	writeln(w, "  journal     Show recent signups and withdrawals")
	writeln(w, "  version     Print the version")
}

func printServeHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  mergington serve")
	writeln(w, "")
	writeln(w, "Starts the server using config file/env defaults.")
}

func printListHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  mergington list [-server URL] [ACTIVITY]")
}

func printRosterHelp(w io.Writer, action string) {
	writeln(w, "Usage:")
	writef(w, "  mergington %s [-server URL] ACTIVITY EMAIL\n", action)
}

func printJournalHelp(w io.Writer) {
	writeln(w, "Usage:")
	writeln(w, "  mergington journal [-server URL] [-activity NAME] [-email EMAIL] [-limit 20]")
}

func currentVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		if strings.TrimSpace(bi.Main.Version) != "" && bi.Main.Version != "(devel)" {
			return bi.Main.Version
		}
	}
	return "dev"
}
