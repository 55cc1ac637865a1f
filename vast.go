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

// Package vast wires VAST's components (schema, identifier, archive, index,
// search, ingest) into the actor topology described by §2 and §5, the way
// engine.go wires the teacher's analyzer/catalog/process list into one
// Engine. Query and Ingest dispatch through internal/actor mailboxes rather
// than calling their subsystems directly, so the backpressure and
// cancellation semantics of §5 apply to every entry point, not just the
// in-process ones reachable over internal/wire.
package vast

import (
	"context"
	"fmt"

	uuid "github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/dolthub/vast/internal/actor"
	"github.com/dolthub/vast/internal/archive"
	"github.com/dolthub/vast/internal/identifier"
	"github.com/dolthub/vast/internal/index"
	"github.com/dolthub/vast/internal/ingest"
	"github.com/dolthub/vast/internal/schema"
	"github.com/dolthub/vast/internal/search"
	"github.com/dolthub/vast/internal/types"
)

// Config configures a new Engine. Zero values are usable defaults except
// Types, which must declare at least the event types the deployment expects
// to ingest and query.
type Config struct {
	// Types is the fixed set of named event types the deployment declares
	// up front (§4.1 "a schema is a fixed, named set of record types").
	Types []types.Type
	// Index sizes the bitmap index's active and on-disk partitions (§4.3).
	Index index.Config
	// Archive bounds how many segments stay hot before eviction (§4.4).
	Archive archive.Config
	// BatchSize is the default Receiver batch size for Ingest (§4.9).
	BatchSize int
	// Log receives structured component logs; nil uses logrus's standard
	// logger, matching the teacher's *Search/*Index/*Archive defaults.
	Log *logrus.Entry
}

// Engine is VAST's equivalent of the teacher's sqle.Engine: the single
// owner of every subsystem's lifecycle, constructed once per process and
// closed once on shutdown.
type Engine struct {
	Schema     *schema.Schema
	Identifier *identifier.Identifier
	Archive    *archive.Archive
	Index      *index.Index
	Search     *search.Search
	Actors     *actor.System
}

type queryRequest struct {
	query string
	limit int
	reply chan queryResponse
}

type queryResponse struct {
	id  search.QueryID
	err error
}

type ingestRequest struct {
	imp       ingest.Importer
	batchSize int
	encode    ingest.Encoder
	reply     chan ingestResponse
}

type ingestResponse struct {
	count int
	err   error
}

// New builds an Engine from its already-constructed storage backends: idStore
// persists the Identifier counter, ixStore backs the index's cold partitions,
// arBackend backs archived segments, and decode rehydrates a segment's raw
// payload back into Event values for Search (mirroring how the teacher's
// New(a *analyzer.Analyzer, cfg *Config) takes a pre-built Analyzer rather
// than constructing one itself). Should call Engine.Close() to finalize
// dependency lifecycles, exactly as engine.go's doc comment says of its own
// New.
func New(cfg Config, idStore identifier.Store, ixStore index.Store, arBackend archive.Backend, decode search.Decoder) (*Engine, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	id, err := identifier.New(idStore)
	if err != nil {
		return nil, fmt.Errorf("vast: identifier: %w", err)
	}

	sch, err := schema.New(cfg.Types...)
	if err != nil {
		return nil, fmt.Errorf("vast: schema: %w", err)
	}
	ar := archive.New(cfg.Archive, arBackend, cfg.Log)
	ix := index.New(cfg.Index, ixStore, cfg.Log)
	se := search.New(sch, ix, ar, decode, cfg.Log)

	e := &Engine{
		Schema:     sch,
		Identifier: id,
		Archive:    ar,
		Index:      ix,
		Search:     se,
		Actors:     actor.NewSystem(),
	}

	if _, err := e.Actors.Spawn("search", actor.DefaultMailboxSize, e.runSearchActor); err != nil {
		return nil, fmt.Errorf("vast: spawn search actor: %w", err)
	}
	if _, err := e.Actors.Spawn("ingest", actor.DefaultMailboxSize, e.runIngestActor(cfg.BatchSize)); err != nil {
		return nil, fmt.Errorf("vast: spawn ingest actor: %w", err)
	}

	return e, nil
}

// NewDefault builds an Engine over in-memory, non-durable backends
// (identifier.MemStore, index.MemStore, archive.MemBackend) — suitable for
// tests and single-process demos, the same role the teacher's
// NewDefault(pro sql.DatabaseProvider) plays for a default Engine.
func NewDefault(types []types.Type, decode search.Decoder) (*Engine, error) {
	return New(Config{Types: types}, &identifier.MemStore{}, index.NewMemStore(), archive.NewMemBackend(), decode)
}

func (e *Engine) runSearchActor(ctx context.Context, mailbox actor.Mailbox) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-mailbox:
			req := msg.(*queryRequest)
			id, err := e.Search.Query(req.query, req.limit)
			req.reply <- queryResponse{id: id, err: err}
		}
	}
}

func (e *Engine) runIngestActor(defaultBatchSize int) func(ctx context.Context, mailbox actor.Mailbox) {
	return func(ctx context.Context, mailbox actor.Mailbox) {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-mailbox:
				req := msg.(*ingestRequest)
				batchSize := req.batchSize
				if batchSize <= 0 {
					batchSize = defaultBatchSize
				}
				recv := ingest.NewReceiver(e.Identifier, e.Archive, e.Index, batchSize, req.encode)
				count, err := recv.Drain(req.imp)
				req.reply <- ingestResponse{count: count, err: err}
			}
		}
	}
}

// Query submits q to the search actor's mailbox and returns its query_id and
// result stream once the actor accepts it (§4.8, §5 "suspension happens only
// at mailbox receive"). The call blocks if the search actor's mailbox is
// full, providing the same backpressure a direct Search.Query call would
// lack.
func (e *Engine) Query(q string, limit int) (search.QueryID, <-chan search.Result, error) {
	reply := make(chan queryResponse, 1)
	if err := e.Actors.Send("search", &queryRequest{query: q, limit: limit, reply: reply}); err != nil {
		return search.QueryID{}, nil, err
	}
	resp := <-reply
	if resp.err != nil {
		return search.QueryID{}, nil, resp.err
	}
	results, ok := e.Search.Results(resp.id)
	if !ok {
		return search.QueryID{}, nil, fmt.Errorf("vast: query %s vanished before Results could be read", uuid.UUID(resp.id).String())
	}
	return resp.id, results, nil
}

// Cancel marks query_id cancelled (§4.8 "cancel(query_id)").
func (e *Engine) Cancel(id search.QueryID) {
	e.Search.Cancel(id)
}

// Ingest drains imp through the Receiver pipeline via the ingest actor's
// mailbox, batching up to batchSize events per segment (a non-positive
// batchSize falls back to the Engine's configured default), and returns how
// many events were shipped.
func (e *Engine) Ingest(imp ingest.Importer, batchSize int, encode ingest.Encoder) (int, error) {
	reply := make(chan ingestResponse, 1)
	if err := e.Actors.Send("ingest", &ingestRequest{imp: imp, batchSize: batchSize, encode: encode, reply: reply}); err != nil {
		return 0, err
	}
	resp := <-reply
	return resp.count, resp.err
}

// Export renders query_id's result stream through exp (§4.9, §4.8 step 5
// "render(query_id, sink)").
func (e *Engine) Export(id search.QueryID, exp *ingest.Exporter) (int, error) {
	results, ok := e.Search.Results(id)
	if !ok {
		return 0, fmt.Errorf("vast: unknown query %s", uuid.UUID(id).String())
	}
	return exp.Render(results)
}

// Close shuts the actor system down: it cancels every actor and waits for
// each to return; messages still queued in a mailbox are dropped, not
// processed. Mirrors engine.go's Close/BackgroundThreads.Shutdown.
func (e *Engine) Close() error {
	return e.Actors.Shutdown()
}
