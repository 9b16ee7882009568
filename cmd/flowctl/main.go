// Command flowctl is the reference CLI embedding of the engine: it loads a
// persisted graph, builds a registry of builtin and example plugin (llm,
// mcp, web) node definitions, and executes it.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nodeflowgo/nodeflow/builtin"
	"github.com/nodeflowgo/nodeflow/engine"
	"github.com/nodeflowgo/nodeflow/log"
	"github.com/nodeflowgo/nodeflow/persist"
	"github.com/nodeflowgo/nodeflow/plugin/llm"
	"github.com/nodeflowgo/nodeflow/plugin/mcp"
	"github.com/nodeflowgo/nodeflow/plugin/web"
	"github.com/nodeflowgo/nodeflow/queue"
	"github.com/nodeflowgo/nodeflow/registry"
	"github.com/nodeflowgo/nodeflow/runtime"
	"github.com/nodeflowgo/nodeflow/viz"
)

// Exit codes, per the engine's run contract: success, a node/body error, or
// a cancelled run.
const (
	exitOK       = 0
	exitError    = 1
	exitCanceled = 2
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitError)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCmd(os.Args[2:])
	case "catalog":
		err = catalogCmd(os.Args[2:])
	case "viz":
		err = vizCmd(os.Args[2:])
	default:
		usage()
		os.Exit(exitError)
	}

	if err == nil {
		os.Exit(exitOK)
	}
	if engine.IsCancelled(err) {
		fmt.Fprintln(os.Stderr, "flowctl:", err)
		os.Exit(exitCanceled)
	}
	fmt.Fprintln(os.Stderr, "flowctl:", err)
	os.Exit(exitError)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  flowctl run <path> [--parallel N] [--stream-mode sequential|fireforget] [--step] [--background]
  flowctl catalog [query]
  flowctl viz <path> [--format mermaid|dot|ascii]`)
}

func newRegistry() *registry.Registry {
	reg := registry.New()
	builtin.Register(reg)
	reg.RegisterFromPlugin(llm.Plugin{})
	reg.RegisterFromPlugin(mcp.Plugin{})
	reg.RegisterFromPlugin(web.Plugin{})
	return reg
}

func loadGraph(path string, reg *registry.Registry) (*persist.Imported, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	imported, warnings, err := persist.Import(data, reg)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	for _, w := range warnings {
		log.Default().Warn("%s: %s", path, w)
	}
	return imported, nil
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	parallelism := fs.Int("parallel", 1, "max concurrent execution branches (1 = sequential)")
	streamMode := fs.String("stream-mode", "sequential", "per-item stream awaiting: sequential|fireforget")
	step := fs.Bool("step", false, "start paused, stepping one node at a time")
	background := fs.Bool("background", false, "run through the background queue and worker, waiting for the job to finish")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("run: missing graph path")
	}
	path := fs.Arg(0)

	reg := newRegistry()
	imported, err := loadGraph(path, reg)
	if err != nil {
		return err
	}

	opts := engine.DefaultOptions()
	if *parallelism > 1 {
		opts.Mode = engine.Parallel
		opts.MaxParallelism = *parallelism
	}
	switch *streamMode {
	case "sequential":
		opts.StreamMode = engine.StreamSequential
	case "fireforget":
		opts.StreamMode = engine.StreamFireAndForget
	default:
		return fmt.Errorf("run: unknown --stream-mode %q", *streamMode)
	}
	if *step {
		opts.Gate = engine.NewPausedGate()
	}

	st := runtime.NewStorage()
	for _, v := range imported.Variables {
		var val any
		if err := json.Unmarshal(v.Value, &val); err != nil {
			return fmt.Errorf("run: variable %q: %w", v.Name, err)
		}
		st.SetVariable(v.Name, val)
	}
	eng := engine.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *background {
		return runBackground(ctx, eng, imported, st, opts)
	}

	if opts.Gate != nil {
		go driveStepGate(opts.Gate)
	}

	return eng.Execute(ctx, imported.Nodes, imported.Connections, st, opts)
}

// driveStepGate reads one line from stdin per node, stepping the run
// forward; a "c" line resumes to completion.
func driveStepGate(gate *engine.Gate) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprintln(os.Stderr, "step mode: press enter to step one node, or 'c' to run to completion")
	for scanner.Scan() {
		if scanner.Text() == "c" {
			gate.Resume()
			return
		}
		gate.StepOnce()
	}
}

// runBackground routes the run through the same Queue/Worker plumbing a
// long-lived host would use, rather than calling engine.Execute directly.
// A one-shot CLI process has no one left to hand the job to once it exits,
// so it still waits for the worker to drain the queue before returning;
// what "background" buys here is the decoupled produce/consume path, not a
// detached process.
func runBackground(ctx context.Context, eng *engine.Engine, imported *persist.Imported, st runtime.Storage, opts engine.Options) error {
	q := queue.New(1)
	worker := queue.NewWorker(q, eng, nil)

	job := &queue.Job{Nodes: imported.Nodes, Connections: imported.Connections, Storage: st, Options: opts}
	if err := q.Enqueue(job); err != nil {
		return fmt.Errorf("run: enqueue: %w", err)
	}
	fmt.Println("queued job", job.ID)
	q.Close()

	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("run: worker: %w", err)
	}
	fmt.Println("job", job.ID, "finished")
	return nil
}

func catalogCmd(args []string) error {
	var query string
	if len(args) > 0 {
		query = args[0]
	}
	reg := newRegistry()
	fmt.Print(viz.RenderCatalog(reg, query))
	return nil
}

func vizCmd(args []string) error {
	fs := flag.NewFlagSet("viz", flag.ExitOnError)
	format := fs.String("format", "mermaid", "output format: mermaid|dot|ascii")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("viz: missing graph path")
	}
	path := fs.Arg(0)

	reg := newRegistry()
	imported, err := loadGraph(path, reg)
	if err != nil {
		return err
	}

	exporter := viz.NewExporter(imported.Nodes, imported.Connections)
	switch *format {
	case "mermaid":
		fmt.Print(exporter.DrawMermaid())
	case "dot":
		fmt.Print(exporter.DrawDOT())
	case "ascii":
		fmt.Print(exporter.DrawASCII())
	default:
		return fmt.Errorf("viz: unknown --format %q", *format)
	}
	return nil
}
