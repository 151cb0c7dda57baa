package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/tinkering/twinby/internal/api"
	"github.com/tinkering/twinby/internal/app"
	"github.com/tinkering/twinby/internal/config"
	"github.com/tinkering/twinby/internal/workspace"
)

type command struct {
	usage string
	help  string
	// min is the required argument count after the command name.
	min int
	run func(ctx context.Context, c *cli, args []string) error
	// long commands run until interrupted instead of under the request timeout.
	long bool
}

var commands = map[string]command{
	"login":    {usage: "login <login>", help: "Sign in; the password is read from the terminal or stdin", min: 1, run: cmdLogin},
	"register": {usage: "register <login> <name> <gender> <age> <interests>", help: "Create an account; needs --about and --photo", min: 5, run: cmdRegister},
	"logout":   {usage: "logout", help: "Forget the session token", run: cmdLogout},
	"me":       {usage: "me", help: "Show your profile", run: cmdMe},
	"feed":     {usage: "feed", help: "List profiles you have not swiped yet", run: cmdFeed},
	"swipe":    {usage: "swipe <user-id> <left|right>", help: "Swipe on a profile", min: 2, run: cmdSwipe},
	"chats":    {usage: "chats", help: "List conversations with unread marks", run: cmdChats},
	"messages": {usage: "messages <chat-id>", help: "Print a conversation and mark it read", min: 1, run: cmdMessages},
	"send":     {usage: "send <chat-id> <text...>", help: "Send a message", min: 2, run: cmdSend},
	"attach":   {usage: "attach <chat-id> <path>", help: "Upload a file and send a link to it", min: 2, run: cmdAttach},
	"support":  {usage: "support [text...]", help: "Print the support thread, or ask a question", run: cmdSupport},
	"watch":    {usage: "watch <chat-id>", help: "Follow a conversation until interrupted", min: 1, run: cmdWatch, long: true},
}

var order = []string{"login", "register", "logout", "me", "feed", "swipe", "chats", "messages", "send", "attach", "support", "watch"}

type cli struct {
	rt      *app.Runtime
	jsonOut bool
	about   string
	photo   string
}

func main() {
	workspaceFlag := flag.String("workspace", "", "workspace name (overrides config default)")
	apiFlag := flag.String("api", "", "API base URL (overrides config and environment)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	verbose := flag.Bool("v", false, "log to stderr")
	about := flag.String("about", "", "about text for register")
	photo := flag.String("photo", "", "photo path for register")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if len(args)-1 < cmd.min {
		fmt.Fprintf(os.Stderr, "usage: twinbyctl %s\n", cmd.usage)
		os.Exit(1)
	}

	name := workspace.Resolve(*workspaceFlag)
	if err := workspace.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadOrDefault(workspace.ConfigPath())
	if err == nil {
		err = config.ApplyEnv(cfg, workspace.EnvPath())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *apiFlag != "" {
		cfg.APIBaseURL = *apiFlag
	}

	c := &cli{jsonOut: *jsonFlag, about: *about, photo: *photo}
	fxApp := fx.New(
		fx.NopLogger,
		app.Module(app.Params{Workspace: name, Config: cfg, LogToStderr: *verbose, Foreground: true}),
		fx.Populate(&c.rt),
	)
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if !cmd.long {
		var cancelReq context.CancelFunc
		ctx, cancelReq = context.WithTimeout(ctx, 30*time.Second)
		defer cancelReq()
	}
	runErr := cmd.run(ctx, c, args[1:])
	stop()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = fxApp.Stop(stopCtx)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", api.UserMessage(runErr))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: twinbyctl [--workspace <name>] [--api <url>] [--json] [-v] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range order {
		cmd := commands[name]
		fmt.Fprintf(os.Stderr, "  %-52s %s\n", cmd.usage, cmd.help)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
