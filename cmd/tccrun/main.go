package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/p-arndt/gotcc/internal/build"
	"github.com/p-arndt/gotcc/internal/config"
	"github.com/p-arndt/gotcc/internal/store"
	"github.com/p-arndt/gotcc/tcc"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var sources, libs, includes, defines listFlag
	cfgPath := flag.String("config", "", "path to tccrun.yaml")
	outType := flag.String("type", "", "output type: memory, exe, dll or obj (default from config)")
	outPath := flag.String("o", "", "output file for exe, dll and obj")
	trap := flag.Bool("trap", false, "catch fatal compiler errors instead of exiting")
	history := flag.Int("history", 0, "print the last n journaled builds and exit")
	flag.Var(&sources, "e", "inline C source (repeatable)")
	flag.Var(&libs, "l", "library to link (repeatable)")
	flag.Var(&includes, "I", "include directory (repeatable)")
	flag.Var(&defines, "D", "macro definition name[=value] (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: tccrun [flags] files... [-- args]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if *trap {
		cfg.Trap = true
	}

	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var st *store.Store
	if cfg.DBPath != "" {
		st, err = store.New(cfg.DBPath, 0)
		if err != nil {
			logger.Error("open journal", "error", err)
			return 1
		}
		defer st.Close()
	}

	if *history > 0 {
		if st == nil {
			logger.Error("history needs db_path to be configured")
			return 1
		}
		if err := printHistory(st, *history); err != nil {
			logger.Error("read journal", "error", err)
			return 1
		}
		return 0
	}

	files, args := splitArgs(flag.Args())
	req := build.Request{
		Files:      files,
		Sources:    sources,
		Libraries:  libs,
		Includes:   includes,
		Defines:    parseDefines(defines),
		OutputPath: *outPath,
		Args:       args,
	}
	if *outType != "" {
		if req.OutputType, err = tcc.ParseOutputType(*outType); err != nil {
			logger.Error("parse flags", "error", err)
			return 2
		}
	}

	var journal build.Journal
	if st != nil {
		journal = st
	}
	runner, err := build.NewRunner(cfg, build.OpenSession, journal, logger)
	if err != nil {
		logger.Error("config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := runner.Build(ctx, req)
	if res != nil {
		for _, d := range res.Diagnostics {
			fmt.Fprintln(os.Stderr, d)
		}
	}
	if err != nil {
		var terr *tcc.Error
		if res == nil || !errors.As(err, &terr) || len(res.Diagnostics) == 0 {
			fmt.Fprintf(os.Stderr, "tccrun: %v\n", err)
		}
		return 1
	}

	if res.Artifact != nil {
		logger.Info("wrote artifact", "artifact", res.Artifact.String())
	}
	return res.ExitCode
}

// splitArgs separates input files from the program's argv at "--". The
// first file name doubles as argv[0].
func splitArgs(args []string) (files, argv []string) {
	for i, a := range args {
		if a == "--" {
			files = args[:i]
			argv = args[i+1:]
			break
		}
	}
	if files == nil && argv == nil {
		files = args
	}
	if len(files) > 0 {
		argv = append([]string{files[0]}, argv...)
	} else {
		argv = append([]string{"tccrun"}, argv...)
	}
	return files, argv
}

func parseDefines(defs []string) map[string]string {
	if len(defs) == 0 {
		return nil
	}
	out := make(map[string]string, len(defs))
	for _, d := range defs {
		name, value, _ := strings.Cut(d, "=")
		out[name] = value
	}
	return out
}

func printHistory(st *store.Store, n int) error {
	builds, err := st.ListBuilds(n)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTYPE\tSTATUS\tEXIT\tDIAGNOSTICS")
	for _, b := range builds {
		diags, err := st.Diagnostics(b.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			b.ID[:8], b.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			b.OutputType, b.Status, b.ExitCode, len(diags))
	}
	return w.Flush()
}
