// Command specdb inspects a dataset container: recursive listings,
// attribute dumps, subtree deletion, and an interactive shell.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/xtxerr/specdb/internal/config"
	"github.com/xtxerr/specdb/internal/logging"
	"github.com/xtxerr/specdb/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	dbPath := flag.String("db", "", "container file, overriding the configuration")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logJSON := flag.Bool("log-json", false, "emit JSON logs")

	flag.Usage = usage
	flag.Parse()

	logging.Init(parseLevel(*logLevel), *logJSON)

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	storeCfg := store.DefaultConfig()
	storeCfg.Path = cfg.Database

	st, err := store.Open(storeCfg)
	if err != nil {
		log.Fatalf("open container: %v", err)
	}
	defer st.Close()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	switch args[0] {
	case "list":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		runCommand(st, "list", prefix)

	case "attrs":
		if len(args) < 2 {
			log.Fatal("attrs requires a path")
		}
		runCommand(st, "attrs", args[1])

	case "delete":
		if len(args) < 2 {
			log.Fatal("delete requires a path")
		}
		runCommand(st, "delete", args[1])

	case "shell":
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			log.Fatal("shell requires a terminal")
		}
		runShell(st)

	default:
		usage()
		os.Exit(2)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: specdb [flags] <command> [path]

Commands:
  list [path]    list groups and datasets under a path (default: all)
  attrs <path>   list a subtree including attributes
  delete <path>  delete a dataset or group subtree
  shell          interactive shell

Flags:
`)
	flag.PrintDefaults()
}

func runCommand(st *store.Store, command, path string) {
	out, err := execute(st, command, path)
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
	fmt.Print(out)
}

// execute runs one inspection command and returns its output.
func execute(st *store.Store, command, path string) (string, error) {
	switch command {
	case "list":
		return st.Render(path, false)
	case "attrs":
		return st.Render(path, true)
	case "delete":
		if err := st.Delete(path); err != nil {
			return "", err
		}
		return fmt.Sprintf("deleted %s\n", path), nil
	default:
		return "", fmt.Errorf("unknown command %q", command)
	}
}

func runShell(st *store.Store) {
	fmt.Printf("specdb shell - container %s (type 'exit' to quit)\n", st.Path())

	executor := func(line string) {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			os.Exit(0)
		}

		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}

		out, err := execute(st, fields[0], path)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		fmt.Print(out)
	}

	p := prompt.New(executor, completer(st),
		prompt.OptionPrefix("specdb> "),
		prompt.OptionTitle("specdb"),
	)
	p.Run()
}

// completer suggests commands and, for the path argument, the container's
// top-level groups.
func completer(st *store.Store) prompt.Completer {
	commands := []prompt.Suggest{
		{Text: "list", Description: "list groups and datasets"},
		{Text: "attrs", Description: "list a subtree with attributes"},
		{Text: "delete", Description: "delete a dataset or group subtree"},
		{Text: "exit", Description: "quit the shell"},
	}

	return func(d prompt.Document) []prompt.Suggest {
		text := d.TextBeforeCursor()
		if !strings.Contains(text, " ") {
			return prompt.FilterHasPrefix(commands, d.GetWordBeforeCursor(), true)
		}

		groups, err := st.Children("")
		if err != nil {
			return nil
		}

		suggestions := make([]prompt.Suggest, 0, len(groups))
		for _, g := range groups {
			suggestions = append(suggestions, prompt.Suggest{Text: g})
		}
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
	}
}
