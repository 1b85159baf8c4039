// Ternlink CLI - inspects, stores and link-checks compiled Tern unit bundles
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/ternlang/tern/config"
	"github.com/ternlang/tern/runtime"
	"github.com/ternlang/tern/unit"
	"github.com/ternlang/tern/unitstore"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	storePath := flag.String("store", "", "Unit store database (default from tern.toml, else units.db)")
	auditPath := flag.String("audit", "", "Write per-symbol link outcomes to this DuckDB file (used with check)")
	verbosity := flag.Int("v", 0, "Log verbosity")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ternlink [options] <command> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Inspects, stores and link-checks compiled Tern unit bundles.\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  check <bundle>...        Register bundles and resolve their runtime symbols\n")
		fmt.Fprintf(os.Stderr, "  put <bundle>...          Store bundles in the unit store\n")
		fmt.Fprintf(os.Stderr, "  get <name> <version>     Write a stored bundle to <name>-<version>.tub\n")
		fmt.Fprintf(os.Stderr, "  list                     List stored units\n")
		fmt.Fprintf(os.Stderr, "  delete <name> <version>  Remove a unit from the store\n")
		fmt.Fprintf(os.Stderr, "  symbols                  Print the runtime symbol registry\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ternlink check build/geometry.tub\n")
		fmt.Fprintf(os.Stderr, "  ternlink -audit audit.duckdb check build/*.tub\n")
		fmt.Fprintf(os.Stderr, "  ternlink -store units.db put build/geometry.tub\n")
		fmt.Fprintf(os.Stderr, "  ternlink get geometry 1.0.0\n")
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level := *verbosity
	if level == 0 && cfg != nil {
		level = cfg.Log.Verbosity
	}
	commonlog.Configure(level, nil)

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "check":
		err = runCheck(args, *auditPath, cfg)
	case "put":
		err = runPut(args, resolveStorePath(*storePath, cfg))
	case "get":
		err = runGet(args, resolveStorePath(*storePath, cfg))
	case "list":
		err = runList(resolveStorePath(*storePath, cfg))
	case "delete":
		err = runDelete(args, resolveStorePath(*storePath, cfg))
	case "symbols":
		err = runSymbols()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveStorePath picks the store database path: flag, then tern.toml,
// then the working-directory default.
func resolveStorePath(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	if cfg != nil {
		if p := cfg.StorePath(); p != "" {
			return p
		}
	}
	return "units.db"
}

// readBundle loads and decodes a bundle file
func readBundle(path string) (*unit.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", path, err)
	}
	u, err := unit.DecodeBundle(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	return u, nil
}

// runCheck registers each bundle and resolves its runtime symbols against
// the registry, reporting anything the generated code links against that
// this engine build does not export.
func runCheck(paths []string, auditPath string, cfg *config.Config) error {
	if len(paths) == 0 {
		return errors.New("check: no bundles given")
	}

	var opts runtime.Options
	if cfg != nil {
		opts = cfg.Options()
	}
	rt := runtime.NewRuntime(opts)
	reg := runtime.NewSymbolRegistry(rt)

	var audit *auditWriter
	if auditPath != "" {
		var err error
		audit, err = openAudit(auditPath, reg.Version())
		if err != nil {
			return err
		}
		defer audit.Close()
	}

	unresolved := 0
	for _, path := range paths {
		u, err := readBundle(path)
		if err != nil {
			return err
		}
		if _, err := rt.RegisterUnit(u); err != nil {
			return fmt.Errorf("registering %q: %w", path, err)
		}

		missing := 0
		for _, sym := range u.Symbols {
			_, ok := reg.Lookup(sym)
			if !ok {
				fmt.Fprintf(os.Stderr, "%s: unresolved symbol %s\n", filepath.Base(path), sym)
				missing++
			}
			if audit != nil {
				if err := audit.Record(u.Name, u.Version, sym, ok); err != nil {
					return err
				}
			}
		}

		fmt.Printf("%s: %s@%s, %d classes, %d/%d symbols resolved\n",
			filepath.Base(path), u.Name, u.Version, len(u.Classes),
			len(u.Symbols)-missing, len(u.Symbols))
		unresolved += missing
	}

	if unresolved > 0 {
		return fmt.Errorf("%d unresolved runtime symbols (registry v%d)", unresolved, reg.Version())
	}
	return nil
}

// runPut stores bundles in the unit store
func runPut(paths []string, storePath string) error {
	if len(paths) == 0 {
		return errors.New("put: no bundles given")
	}

	store, err := unitstore.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range paths {
		u, err := readBundle(path)
		if err != nil {
			return err
		}
		if err := store.Put(u); err != nil {
			return err
		}
		fmt.Printf("stored %s@%s\n", u.Name, u.Version)
	}
	return nil
}

// runGet extracts a bundle from the store into the working directory
func runGet(args []string, storePath string) error {
	if len(args) != 2 {
		return errors.New("get: expected <name> <version>")
	}
	name, version := args[0], args[1]

	store, err := unitstore.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	u, err := store.Get(name, version)
	if err != nil {
		return err
	}

	data, err := unit.EncodeBundle(u)
	if err != nil {
		return err
	}

	out := fmt.Sprintf("%s-%s.tub", name, version)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", out, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
	return nil
}

// runList prints the store catalog
func runList(storePath string) error {
	store, err := unitstore.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	manifests, err := store.List()
	if err != nil {
		return err
	}
	if len(manifests) == 0 {
		fmt.Println("store is empty")
		return nil
	}

	fmt.Printf("%-24s %-12s %7s %7s %8s %8s\n",
		"NAME", "VERSION", "TYPES", "FIELDS", "METHODS", "CLASSES")
	for _, m := range manifests {
		fmt.Printf("%-24s %-12s %7d %7d %8d %8d\n",
			m.Name, m.Version, m.Types, m.Fields, m.Methods, m.Classes)
	}
	return nil
}

// runDelete removes a unit from the store
func runDelete(args []string, storePath string) error {
	if len(args) != 2 {
		return errors.New("delete: expected <name> <version>")
	}

	store, err := unitstore.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("deleted %s@%s\n", args[0], args[1])
	return nil
}

// runSymbols dumps the symbol registry the way generated code sees it
func runSymbols() error {
	rt := runtime.NewRuntime(runtime.Options{})
	reg := runtime.NewSymbolRegistry(rt)

	fmt.Printf("registry v%d\n\n", reg.Version())

	helpers := reg.HelperNames()
	fmt.Printf("helpers (%d):\n", len(helpers))
	for _, name := range helpers {
		fmt.Printf("  %s\n", name)
	}

	support := reg.SupportNames()
	fmt.Printf("\nsupport (%d):\n", len(support))
	for i, name := range support {
		fmt.Printf("  [%2d] %s\n", i, name)
	}
	return nil
}
