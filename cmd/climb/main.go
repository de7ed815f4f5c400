// climb CLI - compile and evaluate pre-tokenized integer arithmetic
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/climb/compiler"
	"github.com/chazu/climb/engine"
	"github.com/chazu/climb/manifest"
	"github.com/chazu/climb/pkg/bytecode"
	"github.com/chazu/climb/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// countFlag is a flag that counts how often it is given (-v -v).
type countFlag int

func (c *countFlag) String() string   { return strconv.Itoa(int(*c)) }
func (c *countFlag) IsBoolFlag() bool { return true }
func (c *countFlag) Set(s string) error {
	if s == "true" {
		*c++
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*c = countFlag(n)
	return nil
}

// options are the global flags shared by every subcommand.
type options struct {
	configDir string
	db        string
	noCache   bool
	verbose   countFlag
	trace     bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &options{stdin: stdin, stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("climb", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configDir, "config", ".", "Directory to search (upwards) for climb.toml")
	fs.StringVar(&opts.db, "db", "", "Cache database path (overrides climb.toml and CLIMB_DB)")
	fs.BoolVar(&opts.noCache, "no-cache", false, "Do not read or write the program cache")
	fs.Var(&opts.verbose, "v", "Verbose logging (repeat for more)")
	fs.BoolVar(&opts.trace, "trace", false, "Print an execution trace of every program")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: climb [options] <command> [args]\n\n")
		fmt.Fprintf(stderr, "Compiles space-separated integer arithmetic to stack bytecode and runs it.\n\n")
		fmt.Fprintf(stderr, "Commands:\n")
		fmt.Fprintf(stderr, "  eval WORDS...          Evaluate an expression\n")
		fmt.Fprintf(stderr, "  compile [-o F] WORDS.. Print the bytecode (or write it to F)\n")
		fmt.Fprintf(stderr, "  run FILE               Execute a compiled .clbc file\n")
		fmt.Fprintf(stderr, "  repl                   Interactive loop\n")
		fmt.Fprintf(stderr, "  serve                  Start the Connect and gRPC servers\n")
		fmt.Fprintf(stderr, "  history [-n N]         Show recent evaluations\n")
		fmt.Fprintf(stderr, "  init                   Write a climb.toml with the defaults\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  climb eval 1 + 2 '*' 3          # 7\n")
		fmt.Fprintf(stderr, "  climb compile -o e.clbc 8 - 3 - 2\n")
		fmt.Fprintf(stderr, "  climb run e.clbc                # 3\n")
		fmt.Fprintf(stderr, "  climb serve -port 8080\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "eval":
		return opts.cmdEval(rest)
	case "compile":
		return opts.cmdCompile(rest)
	case "run":
		return opts.cmdRun(rest)
	case "repl":
		return opts.cmdRepl(rest)
	case "serve":
		return opts.cmdServe(rest)
	case "history":
		return opts.cmdHistory(rest)
	case "init":
		return opts.cmdInit(rest)
	case "help":
		fs.Usage()
		return 0
	}
	fmt.Fprintf(stderr, "Error: unknown command %q\n", cmd)
	fs.Usage()
	return 2
}

func (o *options) errorf(format string, args ...any) int {
	fmt.Fprintf(o.stderr, "Error: "+format+"\n", args...)
	return 1
}

// setup loads the manifest, configures logging and builds the engine.
func (o *options) setup() (*manifest.Manifest, *engine.Engine, error) {
	m, err := manifest.LoadOrDefault(o.configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading manifest: %w", err)
	}
	if o.db != "" {
		m.Cache.Path = o.db
	}
	if o.noCache {
		off := false
		m.Cache.Enabled = &off
	}

	verbosity := m.Log.Verbosity + int(o.verbose)
	if path := m.LogFilePath(); path != "" {
		commonlog.Configure(verbosity, &path)
	} else {
		commonlog.Configure(verbosity, nil)
	}

	var engineOpts []engine.Option
	if o.trace {
		engineOpts = append(engineOpts, engine.WithTrace(o.stderr))
	}
	e, err := engine.FromManifest(m, engineOpts...)
	if err != nil {
		return nil, nil, err
	}
	return m, e, nil
}

func (o *options) cmdEval(args []string) int {
	if len(args) == 0 {
		return o.errorf("eval needs an expression")
	}
	_, e, err := o.setup()
	if err != nil {
		return o.errorf("%v", err)
	}
	defer e.Close()

	result, err := e.EvaluateWords(context.Background(), splitWords(args))
	if err != nil {
		return o.errorf("%v", err)
	}
	fmt.Fprintln(o.stdout, result)
	return 0
}

func (o *options) cmdCompile(args []string) int {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(o.stderr)
	output := fs.String("o", "", "Write CLBC bytecode to this file instead of printing a listing")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, e, err := o.setup()
	if err != nil {
		return o.errorf("%v", err)
	}
	defer e.Close()

	tokens, err := compiler.ParseTokens(splitWords(fs.Args()))
	if err != nil {
		return o.errorf("%v", err)
	}
	prog, err := e.Compile(context.Background(), tokens)
	if err != nil {
		return o.errorf("%v", err)
	}

	if *output == "" {
		fmt.Fprint(o.stdout, prog.DisassembleWithName(strings.Join(compiler.Words(tokens), " ")))
		return 0
	}
	data, err := prog.Serialize()
	if err != nil {
		return o.errorf("%v", err)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return o.errorf("%v", err)
	}
	return 0
}

func (o *options) cmdRun(args []string) int {
	if len(args) != 1 {
		return o.errorf("run needs exactly one .clbc file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return o.errorf("%v", err)
	}
	prog, err := bytecode.Deserialize(data)
	if err != nil {
		return o.errorf("%s: %v", args[0], err)
	}

	_, e, err := o.setup()
	if err != nil {
		return o.errorf("%v", err)
	}
	defer e.Close()

	result, err := e.Execute(context.Background(), prog)
	if err != nil {
		return o.errorf("%v", err)
	}
	fmt.Fprintln(o.stdout, result)
	return 0
}

func (o *options) cmdServe(args []string) int {
	m, e, err := o.setup()
	if err != nil {
		return o.errorf("%v", err)
	}
	defer e.Close()

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(o.stderr)
	port := fs.Int("port", m.Server.Port, "Connect (HTTP/JSON, gRPC-Web) port")
	grpcPort := fs.Int("grpc-port", m.Server.GRPCPort, "Native gRPC port (0 disables it)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	srv := server.New(e)
	errc := make(chan error, 2)

	if *grpcPort != 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", *grpcPort))
		if err != nil {
			return o.errorf("%v", err)
		}
		go func() { errc <- srv.ServeGRPC(lis) }()
	}
	go func() { errc <- srv.ListenAndServe(fmt.Sprintf(":%d", *port)) }()

	fmt.Fprintf(o.stdout, "climb server listening on :%d", *port)
	if *grpcPort != 0 {
		fmt.Fprintf(o.stdout, " (gRPC on :%d)", *grpcPort)
	}
	fmt.Fprintln(o.stdout)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case err := <-errc:
		if err != nil {
			return o.errorf("server: %v", err)
		}
	case <-sigc:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return o.errorf("shutdown: %v", err)
	}
	return 0
}

func (o *options) cmdHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(o.stderr)
	n := fs.Int("n", 10, "Number of evaluations to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	_, e, err := o.setup()
	if err != nil {
		return o.errorf("%v", err)
	}
	defer e.Close()

	hist, err := e.History(context.Background(), *n)
	if err != nil {
		return o.errorf("%v", err)
	}
	for _, ev := range hist {
		outcome := strconv.FormatInt(ev.Result, 10)
		if ev.Error != "" {
			outcome = "error: " + ev.Error
		}
		fmt.Fprintf(o.stdout, "%s  %-30s => %s\n", ev.At.Local().Format(time.DateTime), ev.Expression, outcome)
	}
	return 0
}

func (o *options) cmdInit(_ []string) int {
	m, err := manifest.Default(o.configDir)
	if err != nil {
		return o.errorf("%v", err)
	}
	m.Operators = compiler.DefaultTable().Powers()
	if err := manifest.Write(o.configDir, m); err != nil {
		return o.errorf("%v", err)
	}
	fmt.Fprintf(o.stdout, "wrote %s\n", manifest.FileName)
	return 0
}

// splitWords accepts both "1 + 2" as one argument and 1 + 2 as three.
func splitWords(args []string) []string {
	var words []string
	for _, a := range args {
		words = append(words, strings.Fields(a)...)
	}
	return words
}
