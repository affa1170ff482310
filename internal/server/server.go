// Package server wires all components and creates the server instance.
//
// This is the composition root: it creates the document store, the
// full-text index, the knowledge manager and the session handle, injects
// them into the tools/prompts/resources that depend on them and registers
// those with the router. No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Stryk91/PhiSHRI/internal/config"
	"github.com/Stryk91/PhiSHRI/internal/knowledge"
	"github.com/Stryk91/PhiSHRI/internal/prompts"
	"github.com/Stryk91/PhiSHRI/internal/resources"
	"github.com/Stryk91/PhiSHRI/internal/router"
	"github.com/Stryk91/PhiSHRI/internal/search"
	"github.com/Stryk91/PhiSHRI/internal/session"
	"github.com/Stryk91/PhiSHRI/internal/store"
	"github.com/Stryk91/PhiSHRI/internal/tools"
	"github.com/Stryk91/PhiSHRI/internal/watch"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server is a fully wired PhiSHRI instance for one connection.
type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	search  *search.Index
	manager *knowledge.Manager
	session *session.Session
	router  *router.Router
}

// NewManager builds the store, the optional full-text index and the
// knowledge manager over cfg.Root. The CLI maintenance commands use it
// directly; New builds on it.
//
// The returned cleanup function closes the search database. It is always
// non-nil and safe to call even if the search index failed to open.
func NewManager(cfg config.Config, logger *slog.Logger) (*knowledge.Manager, *search.Index, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	st := store.New(store.Options{Root: cfg.Root, TTL: cfg.CacheTTL, Logger: logger})

	// Full-text search is an independent subsystem: if it fails to
	// initialize, the weighted scorer still answers find requests.
	cleanup := noop
	opts := knowledge.Options{Logger: logger}
	idx, err := search.Open(cfg.SearchDBPath())
	if err != nil {
		logger.Warn("WARNING: full-text search disabled", "error", err)
		idx = nil
	} else {
		opts.Search = idx
		cleanup = func() {
			if err := idx.Close(); err != nil {
				logger.Warn("WARNING: search index close", "error", err)
			}
		}
	}
	return knowledge.New(st, opts), idx, cleanup
}

// New creates the server with all tools, prompts and resources
// registered. This is the single place where all dependencies are
// resolved.
func New(cfg config.Config, logger *slog.Logger) (*Server, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, noop, fmt.Errorf("invalid configuration: %w", err)
	}

	manager, idx, cleanup := NewManager(cfg, logger)
	sess := session.New(cfg.SessionsPath(), cfg.AgentID, cfg.SessionID)

	r := router.New(router.Options{
		Version:      Version,
		Instructions: serverInstructions(),
		Session:      sess,
		LockAgent:    cfg.AgentID != config.DefaultAgentID,
		Logger:       logger,
	})

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   manager.Store(),
		search:  idx,
		manager: manager,
		session: sess,
		router:  r,
	}
	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	logger.Info("server ready",
		"version", Version,
		"root", cfg.Root,
		"agent", sess.AgentID(),
		"session", sess.SessionID(),
		"search", idx != nil,
	)
	return s, cleanup, nil
}

// Router returns the message router.
func (s *Server) Router() *router.Router { return s.router }

// Manager returns the knowledge manager.
func (s *Server) Manager() *knowledge.Manager { return s.manager }

// Session returns the session handle of this connection.
func (s *Server) Session() *session.Session { return s.session }

// Serve answers requests from in on out until in is exhausted or ctx is
// done. Alongside the router it seeds an empty full-text index and, when
// enabled, runs the corpus watcher.
func (s *Server) Serve(parent context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var w *watch.Watcher
	if s.cfg.Watch {
		var err error
		w, err = watch.New(watch.Options{
			Dirs:     []string{s.cfg.ContextsPath(), s.cfg.IndexesPath()},
			OnChange: s.corpusChanged,
			Logger:   s.logger,
		})
		if err != nil {
			return fmt.Errorf("starting corpus watcher: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.router.Serve(gctx, in, out)
	})
	if w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}
	if s.search != nil {
		g.Go(func() error {
			s.seedSearch()
			return nil
		})
	}

	// The router blocks on its reader; on cancellation the caller is
	// exiting and does not wait for the read to return.
	errc := make(chan error, 1)
	go func() { errc <- g.Wait() }()
	select {
	case err := <-errc:
		return err
	case <-parent.Done():
		return nil
	}
}

// corpusChanged drops every cached index and document after files under
// the corpus root changed on disk.
func (s *Server) corpusChanged(paths []string) {
	s.store.ClearCache()
	s.logger.Info("corpus changed on disk, caches cleared", "files", len(paths))
}

// seedSearch fills the full-text mirror when it is empty, which is the
// case on first start against an existing corpus.
func (s *Server) seedSearch() {
	n, err := s.search.Count()
	if err != nil {
		s.logger.Warn("WARNING: search index count failed", "error", err)
		return
	}
	if n > 0 {
		return
	}
	if err := s.manager.RefreshSearch(); err != nil {
		s.logger.Warn("WARNING: search index refresh failed", "error", err)
		return
	}
	s.logger.Debug("full-text index seeded")
}

// --- Registration ---

func (s *Server) registerTools() {
	m := s.manager

	// Read & navigate
	readDoor := tools.NewReadDoorTool(m)
	s.router.AddTool(readDoor.Definition(), readDoor.Handle)

	listDoors := tools.NewListDoorsTool(m)
	s.router.AddTool(listDoors.Definition(), listDoors.Handle)

	findDoor := tools.NewFindDoorTool(m)
	s.router.AddTool(findDoor.Definition(), findDoor.Handle)

	loadChain := tools.NewLoadChainTool(m)
	s.router.AddTool(loadChain.Definition(), loadChain.Handle)

	// Lifecycle
	createDoor := tools.NewCreateDoorTool(m)
	s.router.AddTool(createDoor.Definition(), createDoor.Handle)

	validateDoor := tools.NewValidateDoorTool(m)
	s.router.AddTool(validateDoor.Definition(), validateDoor.Handle)

	batchCreate := tools.NewBatchCreateTool(m)
	s.router.AddTool(batchCreate.Definition(), batchCreate.Handle)

	// Session state
	getBootstrap := tools.NewGetBootstrapTool(s.session)
	s.router.AddTool(getBootstrap.Definition(), getBootstrap.Handle)

	updateBootstrap := tools.NewUpdateBootstrapTool(s.session)
	s.router.AddTool(updateBootstrap.Definition(), updateBootstrap.Handle)

	checkpoint := tools.NewCheckpointTool(s.session)
	s.router.AddTool(checkpoint.Definition(), checkpoint.Handle)

	// Graph & maintenance
	searchSemantic := tools.NewSearchSemanticTool(m)
	s.router.AddTool(searchSemantic.Definition(), searchSemantic.Handle)

	prereqs := tools.NewGetPrerequisitesTool(m)
	s.router.AddTool(prereqs.Definition(), prereqs.Handle)

	rebuild := tools.NewRebuildIndexesTool(m)
	s.router.AddTool(rebuild.Definition(), rebuild.Handle)

	audit := tools.NewAuditTool(m)
	s.router.AddTool(audit.Definition(), audit.Handle)

	stats := tools.NewStatsTool(m)
	s.router.AddTool(stats.Definition(), stats.Handle)
}

func (s *Server) registerPrompts() {
	openDoor := prompts.NewOpenDoorPrompt()
	s.router.AddPrompt(openDoor.Definition(), openDoor.Handle)

	explore := prompts.NewExploreCategoryPrompt()
	s.router.AddPrompt(explore.Definition(), explore.Handle)

	findContext := prompts.NewFindContextPrompt()
	s.router.AddPrompt(findContext.Definition(), findContext.Handle)

	resume := prompts.NewSessionResumePrompt()
	s.router.AddPrompt(resume.Definition(), resume.Handle)

	overview := prompts.NewOverviewPrompt()
	s.router.AddPrompt(overview.Definition(), overview.Handle)
}

func (s *Server) registerResources() {
	h := resources.NewHandler(s.manager)
	for _, res := range h.CategoryResources() {
		s.router.AddResource(res, h.HandleCategory)
	}
	s.router.AddResource(h.IndexResource(), h.HandleIndex)
	s.router.AddResource(h.StatsResource(), h.HandleStats)
	s.router.AddResourceTemplate(h.DoorTemplate(), resources.DoorPrefix, h.HandleDoor)
}

// noop is the cleanup used when no search index was opened.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use PhiSHRI effectively.
func serverInstructions() string {
	return `You have access to PhiSHRI, a knowledge base of "doors".

## What is a door?
A door is a small JSON context document identified by a code such as
D05SILENT_INSTALL. Its short code (D05) is accepted anywhere a code is.
Each door carries a summary, a semantic path (TOOLS.DEPLOYMENT.SILENT),
aliases, prerequisites (doors to understand first), related doors,
onboarding notes and metadata.

## How to find context
1. phishri_find_door with a few keywords when you do not know the code
2. phishri_list_doors to browse a category (SECURITY, WORKFLOWS,
   ARCHITECTURE, TOOLS, AGENTS, PROJECTS, ERRORS, LANGUAGES)
3. phishri_search_semantic to browse a branch of the semantic hierarchy
4. phishri_read_door to open one door (markdown, json or yaml)
5. phishri_load_chain to open several doors with their prerequisites in
   dependency order; use phishri_get_prerequisites to preview the order

## Session state
Your progress survives restarts. At the start of a session call
phishri_get_bootstrap. Record progress with phishri_update_bootstrap and
snapshot milestones with phishri_session_checkpoint.

## Maintaining the corpus
- phishri_create_door and phishri_batch_create add doors; both validate
  and refresh the indexes
- phishri_validate_door checks a door for schema and reference problems
- phishri_audit reports missing prerequisites and broken references and
  can drop them with fix=true
- phishri_rebuild_indexes rescans the corpus after manual edits
- phishri_stats summarizes the corpus`
}
