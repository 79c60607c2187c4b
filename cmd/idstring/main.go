// Command idstring inspects identifier registries and per-entity tag
// stores.
//
//	idstring [flags] tree
//	idstring [flags] lookup <path>
//	idstring [flags] check <paths.yaml>
//	idstring [flags] save <entity> <path>...
//	idstring [flags] load <entity>
//	idstring [flags] entities
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/idstring/internal/config"
	"github.com/zeusync/idstring/internal/injector"
	"github.com/zeusync/idstring/pkg/idstring"
)

var exitFunc = os.Exit

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	exitFunc(code)
}

const usage = `usage: idstring [flags] <command> [args]

commands:
  tree                  print the identifier tree
  lookup <path>         describe one identifier
  check <file>          resolve a YAML list of persisted paths
  save <entity> <path>  store tags for an entity
  load <entity>         print the stored tags of an entity
  entities              list stored entities
`

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("idstring", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage, "\nflags:\n")
		fs.PrintDefaults()
	}
	var (
		configPath = fs.String("config", "", "path to a YAML config file")
		logLevel   = fs.String("log-level", "", "override log_level")
		storePath  = fs.String("store", "", "override store_path")
		manifests  = fs.String("manifests", "", "comma separated manifest files, appended to the config")
		noBuiltin  = fs.Bool("no-builtin", false, "skip the built-in application tags")
		prefix     = fs.String("prefix", "", "tree: only show this path and below")
		typeKey    = fs.String("type", "", "tree: only show descendants of this type key")
		all        = fs.Bool("all", false, "tree: include hidden identifiers")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *storePath != "" {
		cfg.StorePath = *storePath
	}
	if *manifests != "" {
		for _, m := range strings.Split(*manifests, ",") {
			if m = strings.TrimSpace(m); m != "" {
				cfg.Manifests = append(cfg.Manifests, m)
			}
		}
	}
	if *noBuiltin {
		cfg.BuiltinTags = false
	}
	if *prefix != "" {
		cfg.View.Prefix = *prefix
	}
	if *typeKey != "" {
		cfg.View.TypeKey = *typeKey
	}
	if *all {
		cfg.View.IgnoreHidden = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}

	app, cleanup, err := injector.InitializeApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "init:", err)
		return 1
	}
	defer cleanup()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "tree":
		err = runTree(app, stdout)
	case "lookup":
		err = runLookup(app, rest, stdout)
	case "check":
		var missing int
		missing, err = runCheck(app, rest, stdout)
		if err == nil && missing > 0 {
			return 1
		}
	case "save", "load", "entities":
		err = runStore(ctx, app, cmd, rest, stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fs.Usage()
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func runTree(app *injector.App, stdout io.Writer) error {
	if err := app.Registry.DumpView(stdout, app.Config.View); err != nil {
		return err
	}
	_, err := fmt.Fprintf(stdout, "# %d identifiers, fingerprint %016x\n",
		app.Registry.Len(), app.Registry.Fingerprint())
	return err
}

func runLookup(app *injector.App, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("expected exactly one path")
	}
	h, err := app.Registry.Lookup(args[0])
	if err != nil {
		return err
	}
	info, _ := app.Registry.Info(h)
	out, err := yaml.Marshal(info)
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

// runCheck reports every path of the file that no longer resolves.
func runCheck(app *injector.App, args []string, stdout io.Writer) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return 0, err
	}
	set := idstring.NewSet(app.Registry)
	if err := yaml.Unmarshal(data, set); err != nil {
		return 0, err
	}
	missing := set.Missing()
	for _, h := range missing {
		fmt.Fprintf(stdout, "missing: %s\n", h.Path())
	}
	fmt.Fprintf(stdout, "%d paths, %d missing\n", set.Len(), len(missing))
	return len(missing), nil
}

func runStore(ctx context.Context, app *injector.App, cmd string, args []string, stdout io.Writer) error {
	store, cleanup, err := injector.InitializeStore(app.Config, app.Logger)
	if err != nil {
		return err
	}
	defer cleanup()

	switch cmd {
	case "save":
		if len(args) < 2 {
			return errors.New("expected an entity and at least one path")
		}
		set := idstring.NewSet(app.Registry)
		for _, p := range args[1:] {
			h, err := app.Registry.Lookup(p)
			if err != nil {
				return err
			}
			set.AddLeafElement(h)
		}
		if err := store.Save(ctx, args[0], set); err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s: %s\n", args[0], set)
		return err
	case "load":
		if len(args) != 1 {
			return errors.New("expected exactly one entity")
		}
		set := idstring.NewSet(app.Registry)
		if err := store.Load(ctx, args[0], set); err != nil {
			return err
		}
		for _, h := range set.Elements() {
			state := ""
			if h.IsMissing() {
				state = " (missing)"
			}
			fmt.Fprintf(stdout, "%s%s\n", h.Path(), state)
		}
		return nil
	default:
		names, err := store.Entities(ctx)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(stdout, n)
		}
		return nil
	}
}
