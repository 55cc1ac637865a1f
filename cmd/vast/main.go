// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command vast is VAST's single binary, grouped into general, actor
// selection, per-component host/port, import/export, index-sizing and
// logger flags (§6). It builds a Config and an actor topology from those
// flags; the grammar of each flag is §6's own, not reinvented here.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/dolthub/vast"
	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/index"
	"github.com/dolthub/vast/internal/ingest"
	"github.com/dolthub/vast/internal/types"
	"github.com/dolthub/vast/server"
)

// flags holds every group of §6's CLI options, bound directly to cobra
// flag variables — the same "one struct, one *Var per field" shape cue's
// cmd/cue/cmd subcommands use.
type flags struct {
	// general
	dataDir string
	version bool

	// actor selection (mutually exclusive per §6: console excludes all
	// other actor flags; importer/exporter/receiver/identifier are
	// pairwise exclusive)
	console  bool
	receiver bool
	archive_ bool
	index_   bool
	ident    bool
	search_  bool
	exporter bool
	importer bool

	// per-component host/port
	host string
	port int

	// import/export parameters
	schema    string
	readPath  string
	writePath string
	iface     string
	batchSize int
	limit     int
	query     string
	pcapFlush int

	// index sizing
	maxEvents   int
	maxParts    int
	activeParts int

	// logger
	verbose  bool
	veryVerb bool
	noColors bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "fatal"))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:          "vast",
		Short:        "a distributed event store for network security telemetry",
		Version:      "0.1.0",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.version {
				fmt.Println(cmd.Version)
				return nil
			}
			return run(f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.dataDir, "directory", "d", "", "data directory for this process's durable stores (empty: in-memory, non-durable)")
	fl.BoolVar(&f.version, "version", false, "print the version and exit")

	fl.BoolVarP(&f.console, "console", "C", false, "run every component in a single process")
	fl.BoolVar(&f.receiver, "receiver", false, "run the receiver actor")
	fl.BoolVar(&f.archive_, "archive", false, "run the archive actor")
	fl.BoolVar(&f.index_, "index", false, "run the index actor")
	fl.BoolVar(&f.ident, "identifier", false, "run the identifier actor")
	fl.BoolVar(&f.search_, "search", false, "run the search actor")
	fl.BoolVarP(&f.exporter, "exporter", "E", false, "run the exporter actor")
	fl.BoolVarP(&f.importer, "importer", "I", false, "run the importer actor")

	fl.StringVar(&f.host, "host", "127.0.0.1", "host this component binds or dials")
	fl.IntVar(&f.port, "port", 42000, "port this component binds or dials")
	if v, ok := os.LookupEnv("VAST_PORT"); ok {
		if p, err := cast.ToIntE(v); err == nil {
			f.port = p
		}
	}

	fl.StringVar(&f.schema, "schema", "", "declared-type file path (accepted but not read; the built-in conn type is always used)")
	fl.StringVar(&f.readPath, "read", "-", "importer: input file (- for stdin)")
	fl.StringVar(&f.writePath, "write", "-", "exporter: output file (- for stdout)")
	fl.StringVar(&f.iface, "interface", "", "importer: tag field selecting each record's declared type")
	fl.IntVar(&f.batchSize, "batch-size", 1, "receiver: events per batched segment")
	fl.IntVar(&f.limit, "limit", 0, "search: max matches to stream before stopping (0 disables)")
	fl.StringVarP(&f.query, "query", "q", "", "search: query expression (requires --exporter)")
	fl.IntVar(&f.pcapFlush, "pcap-flush", 1000, "exporter: flush the sink every N rendered records")

	fl.IntVar(&f.maxEvents, "max-events", 0, "index: max events per partition (0 disables)")
	fl.IntVar(&f.maxParts, "max-parts", 10, "index: max resident partitions")
	fl.IntVar(&f.activeParts, "active-parts", 1, "index: partitions actively receiving events")

	fl.BoolVarP(&f.verbose, "verbose", "v", false, "enable info-level logging")
	fl.BoolVarP(&f.veryVerb, "very-verbose", "V", false, "enable debug-level logging")
	fl.BoolVar(&f.noColors, "no-colors", false, "disable colorized log output")

	return cmd
}

// validate enforces §6's flag conflicts and dependencies.
func (f *flags) validate() error {
	other := map[string]bool{
		"--receiver":   f.receiver,
		"--archive":    f.archive_,
		"--index":      f.index_,
		"--identifier": f.ident,
		"--search":     f.search_,
		"--exporter":   f.exporter,
		"--importer":   f.importer,
	}
	if f.console {
		for name, set := range other {
			if set {
				return fmt.Errorf("vast: --console excludes %s", name)
			}
		}
	}

	pairwise := map[string]bool{"--importer": f.importer, "--exporter": f.exporter, "--receiver": f.receiver, "--identifier": f.ident}
	var set []string
	for name, v := range pairwise {
		if v {
			set = append(set, name)
		}
	}
	if len(set) > 1 {
		return fmt.Errorf("vast: %v are mutually exclusive", set)
	}

	if f.exporter && f.query == "" {
		return fmt.Errorf("vast: --exporter requires --query")
	}
	if !f.console && !f.importer && !f.exporter && !f.receiver && !f.ident && !f.archive_ && !f.index_ && !f.search_ {
		return fmt.Errorf("vast: one of --console or an actor-selection flag is required")
	}

	return nil
}

func newLogger(f *flags) *logrus.Entry {
	logger := logrus.New()
	switch {
	case f.veryVerb:
		logger.SetLevel(logrus.DebugLevel)
	case f.verbose:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: f.noColors})
	return logrus.NewEntry(logger)
}

// newEngine builds a vast.Engine from f, using file-backed durable stores
// under f.dataDir when set, or in-memory ones otherwise (§6 "-d <dir>").
func newEngine(f *flags, log *logrus.Entry) (*vast.Engine, error) {
	cfg := vast.Config{
		Types:     []types.Type{defaultEventType()},
		Index:     index.Config{MaxEvents: f.maxEvents, MaxParts: f.maxParts, ActiveParts: f.activeParts},
		Archive:   archive.Config{MaxSegments: f.maxParts},
		BatchSize: f.batchSize,
		Log:       log,
	}

	if f.dataDir == "" {
		return vast.New(cfg, &identifier.MemStore{}, index.NewMemStore(), archive.NewMemBackend(), decodeJSONSegment)
	}

	if err := os.MkdirAll(f.dataDir+"/identifier", 0755); err != nil {
		return nil, fmt.Errorf("vast: create data directory: %w", err)
	}
	idStore, err := identifier.OpenBoltStore(f.dataDir + "/identifier/state")
	if err != nil {
		return nil, fmt.Errorf("vast: open identifier store: %w", err)
	}
	ixStore, err := index.NewFileStore(f.dataDir + "/index")
	if err != nil {
		return nil, fmt.Errorf("vast: open index store: %w", err)
	}
	arBackend, err := archive.NewFileBackend(f.dataDir + "/archive")
	if err != nil {
		return nil, fmt.Errorf("vast: open archive backend: %w", err)
	}
	return vast.New(cfg, idStore, ixStore, arBackend, decodeJSONSegment)
}

// defaultEventType is the schema this binary declares absent a --schema
// file to parse one from (§1: schema-file parsing is explicitly plumbing,
// out of SPEC_FULL.md's core scope).
func defaultEventType() types.Type {
	return types.Record(types.Field{Name: "text", Type: types.String}).Named("event")
}

func run(f *flags) error {
	if err := f.validate(); err != nil {
		return err
	}
	log := newLogger(f)

	engine, err := newEngine(f, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	switch {
	case f.console:
		return runConsole(f, engine, log)
	case f.importer:
		return runImporter(f, engine)
	case f.exporter:
		return runExporter(f, engine)
	default:
		// receiver/archive/index/identifier/search run as standalone
		// processes reachable only over internal/wire; --host/--port pick
		// the listener address for whichever actor(s) this process hosts.
		srv, err := server.New(server.Config{Addr: fmt.Sprintf("%s:%d", f.host, f.port)}, engine, log)
		if err != nil {
			return err
		}
		log.WithField("addr", fmt.Sprintf("%s:%d", f.host, f.port)).Info("vast: serving")
		return srv.Serve()
	}
}

func runImporter(f *flags, engine *vast.Engine) error {
	r, closeFn, err := openRead(f.readPath)
	if err != nil {
		return err
	}
	defer closeFn()

	imp := ingest.NewJSONImporter(r, f.iface, map[string]types.Type{defaultEventType().Name(): defaultEventType()})
	count, err := engine.Ingest(imp, f.batchSize, encodeJSONSegment)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "vast: ingested %d events\n", count)
	return nil
}

func runExporter(f *flags, engine *vast.Engine) error {
	_, results, err := engine.Query(f.query, f.limit)
	if err != nil {
		return err
	}

	w, closeFn, err := openWrite(f.writePath)
	if err != nil {
		return err
	}
	defer closeFn()

	exp := ingest.NewExporter(w, f.pcapFlush, renderJSONEvent)
	count, err := exp.Render(results)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "vast: rendered %d matches\n", count)
	return nil
}

func runConsole(f *flags, engine *vast.Engine, log *logrus.Entry) error {
	if f.readPath != "-" || f.iface != "" {
		if err := runImporter(f, engine); err != nil {
			return err
		}
	}
	if f.query != "" {
		return runExporter(f, engine)
	}
	log.Info("vast: console ready; re-run with --query to search")
	return nil
}

// openRead returns stdin as-is (never closed out from under the process)
// or an opened file, plus a close func that's always safe to defer.
func openRead(path string) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}

// openWrite mirrors openRead, buffering stdout so the exporter's
// flush-every-N behavior (§4.9) doesn't turn into one syscall per record.
func openWrite(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		w := bufio.NewWriter(os.Stdout)
		return w, w.Flush, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return file, file.Close, nil
}
