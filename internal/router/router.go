// Package router reads newline-delimited JSON-RPC messages, dispatches them
// to registered tools, prompts and resources, and writes the responses.
//
// Messages are handled one at a time, in order. Each produces at most one
// response line; notifications never produce one, even on error. The
// router is the only place where Go errors become protocol error codes.
package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/protocol"
	"github.com/Stryk91/PhiSHRI/internal/search"
	"github.com/Stryk91/PhiSHRI/internal/session"
)

// ErrInvalidParams marks a request whose arguments are missing or of the
// wrong shape.
var ErrInvalidParams = errors.New("invalid params")

// maxMessageSize bounds a single request line.
const maxMessageSize = 16 << 20

// ToolHandler executes a tool call.
type ToolHandler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// PromptHandler renders a prompt.
type PromptHandler func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)

// ResourceHandler reads a resource.
type ResourceHandler func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)

// State is the handshake state of the connection.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
)

func (s State) String() string {
	if s == StateInitialized {
		return "initialized"
	}
	return "uninitialized"
}

type methodFunc func(ctx context.Context, req *protocol.Request) (any, error)

type templateEntry struct {
	prefix   string
	template mcp.ResourceTemplate
	handler  ResourceHandler
}

// Options configures a Router.
type Options struct {
	// Version is reported in the handshake.
	Version string
	// Instructions is the optional handshake instructions text.
	Instructions string
	// Session is the state handle of this connection. Required.
	Session *session.Session
	// LockAgent keeps the configured agent id instead of deriving it from
	// the client name on initialize.
	LockAgent bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Router dispatches protocol messages.
type Router struct {
	version      string
	instructions string
	session      *session.Session
	lockAgent    bool
	logger       *slog.Logger

	mu    sync.Mutex
	state State

	methods map[string]methodFunc

	tools        []mcp.Tool
	toolHandlers map[string]ToolHandler

	prompts        []mcp.Prompt
	promptHandlers map[string]PromptHandler

	resources        []mcp.Resource
	resourceHandlers map[string]ResourceHandler
	templates        []templateEntry
}

// New creates a Router with the built-in protocol methods registered.
func New(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		version:          opts.Version,
		instructions:     opts.Instructions,
		session:          opts.Session,
		lockAgent:        opts.LockAgent,
		logger:           logger,
		toolHandlers:     make(map[string]ToolHandler),
		promptHandlers:   make(map[string]PromptHandler),
		resourceHandlers: make(map[string]ResourceHandler),
	}
	r.methods = map[string]methodFunc{
		protocol.MethodInitialize:            r.handleInitialize,
		protocol.MethodInitialized:           r.handleInitialized,
		protocol.MethodInitializedLegacy:     r.handleInitialized,
		protocol.MethodCancelled:             noResult,
		protocol.MethodPing:                  noResult,
		protocol.MethodToolsList:             r.handleToolsList,
		protocol.MethodToolsCall:             r.handleToolsCall,
		protocol.MethodPromptsList:           r.handlePromptsList,
		protocol.MethodPromptsGet:            r.handlePromptsGet,
		protocol.MethodResourcesList:         r.handleResourcesList,
		protocol.MethodResourcesRead:         r.handleResourcesRead,
		protocol.MethodResourceTemplatesList: r.handleResourceTemplatesList,
	}
	return r
}

// ─── Registration ────────────────────────────────────────────────────────────

// AddTool registers a tool. Tools are listed in registration order.
func (r *Router) AddTool(tool mcp.Tool, h ToolHandler) {
	if _, dup := r.toolHandlers[tool.Name]; !dup {
		r.tools = append(r.tools, tool)
	}
	r.toolHandlers[tool.Name] = h
}

// AddPrompt registers a prompt.
func (r *Router) AddPrompt(prompt mcp.Prompt, h PromptHandler) {
	if _, dup := r.promptHandlers[prompt.Name]; !dup {
		r.prompts = append(r.prompts, prompt)
	}
	r.promptHandlers[prompt.Name] = h
}

// AddResource registers a resource with a fixed URI.
func (r *Router) AddResource(res mcp.Resource, h ResourceHandler) {
	if _, dup := r.resourceHandlers[res.URI]; !dup {
		r.resources = append(r.resources, res)
	}
	r.resourceHandlers[res.URI] = h
}

// AddResourceTemplate registers a handler for every URI starting with
// prefix. Fixed resources take precedence.
func (r *Router) AddResourceTemplate(tmpl mcp.ResourceTemplate, prefix string, h ResourceHandler) {
	r.templates = append(r.templates, templateEntry{prefix: prefix, template: tmpl, handler: h})
}

// State returns the handshake state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ─── Loop ────────────────────────────────────────────────────────────────────

// Serve handles messages from in until EOF or ctx is done, writing one
// response line per answered request to out.
func (r *Router) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := r.HandleMessage(ctx, line)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flushing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	r.logger.Info("input closed, shutting down")
	return nil
}

// HandleMessage processes one raw message and returns the response to
// send, or nil when none is due. It never panics.
func (r *Router) HandleMessage(ctx context.Context, data []byte) (resp *protocol.Response) {
	if !json.Valid(data) {
		r.logger.Warn("unparseable message", "bytes", len(data))
		return protocol.Failure(protocol.NullID, protocol.NewError(protocol.CodeParseError, "Parse error: invalid JSON"))
	}
	// Well-formed JSON that does not decode into a request object is an
	// invalid request, not a parse error.
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		r.logger.Warn("malformed request", "error", err)
		return protocol.Failure(protocol.NullID, protocol.NewError(protocol.CodeInvalidRequest, "Invalid Request: "+err.Error()))
	}
	notify := req.IsNotification()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("handler panic", "method", req.Method, "panic", p, "stack", string(debug.Stack()))
			resp = nil
			if !notify {
				resp = protocol.Failure(req.ID, protocol.NewError(protocol.CodeInternalError, fmt.Sprintf("internal error: %v", p)))
			}
		}
	}()

	if perr := req.Validate(); perr != nil {
		if notify {
			return nil
		}
		return protocol.Failure(req.ID, perr)
	}

	r.logger.Debug("request", "method", req.Method, "notification", notify)

	h, ok := r.methods[req.Method]
	if !ok {
		if notify {
			return nil
		}
		return protocol.Failure(req.ID, protocol.NewError(protocol.CodeMethodNotFound, "Method not found: "+req.Method))
	}

	result, err := h(ctx, &req)
	if notify {
		if err != nil {
			r.logger.Debug("notification failed", "method", req.Method, "error", err)
		}
		return nil
	}
	if err != nil {
		perr := toProtocolError(err)
		r.logger.Debug("request failed", "method", req.Method, "code", perr.Code, "error", err)
		return protocol.Failure(req.ID, perr)
	}
	return protocol.Result(req.ID, result)
}

// toProtocolError maps an error returned by any layer to a protocol error.
func toProtocolError(err error) *protocol.Error {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return perr
	}
	var parseErr *door.ParseError

	code := protocol.CodeInternalError
	switch {
	case errors.Is(err, door.ErrDoorNotFound):
		code = protocol.CodeDoorNotFound
	case errors.Is(err, door.ErrIndexNotFound), errors.As(err, &parseErr):
		code = protocol.CodeIndexError
	case errors.Is(err, session.ErrBootstrap):
		code = protocol.CodeBootstrapError
	case errors.Is(err, search.ErrSearch):
		code = protocol.CodeSearchError
	case errors.Is(err, ErrInvalidParams), errors.Is(err, door.ErrInvalidDoor), errors.Is(err, door.ErrDoorExists):
		code = protocol.CodeInvalidParams
	}
	return protocol.NewError(code, err.Error())
}

func invalidParams(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

// ─── Methods ─────────────────────────────────────────────────────────────────

func noResult(context.Context, *protocol.Request) (any, error) {
	return struct{}{}, nil
}

func (r *Router) handleInitialize(_ context.Context, req *protocol.Request) (any, error) {
	var p protocol.InitializeParams
	if perr := req.DecodeParams(&p); perr != nil {
		return nil, perr
	}

	agent := r.session.AgentID()
	if !r.lockAgent {
		agent = r.session.SetAgent(p.ClientInfo.Name)
	}
	if err := r.session.EnsureDirs(); err != nil {
		r.logger.Warn("WARNING: could not create session directory", "error", err)
	}

	r.mu.Lock()
	r.state = StateInitialized
	r.mu.Unlock()

	r.logger.Info("client initialized",
		"client", p.ClientInfo.Name,
		"client_version", p.ClientInfo.Version,
		"protocol", p.ProtocolVersion,
		"agent_id", agent,
		"session_id", r.session.SessionID(),
	)
	return protocol.NewInitializeResult(r.version, r.instructions), nil
}

func (r *Router) handleInitialized(context.Context, *protocol.Request) (any, error) {
	r.mu.Lock()
	r.state = StateInitialized
	r.mu.Unlock()
	return struct{}{}, nil
}

func (r *Router) handleToolsList(context.Context, *protocol.Request) (any, error) {
	return mcp.ListToolsResult{Tools: r.tools}, nil
}

func (r *Router) handleToolsCall(ctx context.Context, req *protocol.Request) (any, error) {
	var call mcp.CallToolRequest
	if perr := req.DecodeParams(&call.Params); perr != nil {
		return nil, perr
	}
	if call.Params.Name == "" {
		return nil, invalidParams("tool name is required")
	}
	h, ok := r.toolHandlers[call.Params.Name]
	if !ok {
		return nil, invalidParams("Unknown tool: %s", call.Params.Name)
	}
	if call.Params.Arguments == nil {
		call.Params.Arguments = map[string]any{}
	}

	r.logger.Debug("tool call", "tool", call.Params.Name)
	res, err := h(ctx, call)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("tool %s returned no result", call.Params.Name)
	}
	return res, nil
}

func (r *Router) handlePromptsList(context.Context, *protocol.Request) (any, error) {
	return mcp.ListPromptsResult{Prompts: r.prompts}, nil
}

func (r *Router) handlePromptsGet(ctx context.Context, req *protocol.Request) (any, error) {
	var get mcp.GetPromptRequest
	if perr := req.DecodeParams(&get.Params); perr != nil {
		return nil, perr
	}
	h, ok := r.promptHandlers[get.Params.Name]
	if !ok {
		return nil, invalidParams("Unknown prompt: %s", get.Params.Name)
	}
	return h(ctx, get)
}

func (r *Router) handleResourcesList(context.Context, *protocol.Request) (any, error) {
	return mcp.ListResourcesResult{Resources: r.resources}, nil
}

func (r *Router) handleResourceTemplatesList(context.Context, *protocol.Request) (any, error) {
	tmpls := make([]mcp.ResourceTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		tmpls = append(tmpls, t.template)
	}
	return mcp.ListResourceTemplatesResult{ResourceTemplates: tmpls}, nil
}

func (r *Router) handleResourcesRead(ctx context.Context, req *protocol.Request) (any, error) {
	var read mcp.ReadResourceRequest
	if perr := req.DecodeParams(&read.Params); perr != nil {
		return nil, perr
	}
	uri := read.Params.URI
	if uri == "" {
		return nil, invalidParams("uri is required")
	}

	h, ok := r.resourceHandlers[uri]
	if !ok {
		h, ok = r.matchTemplate(uri)
	}
	if !ok {
		return nil, invalidParams("Unknown resource: %s", uri)
	}

	contents, err := h(ctx, read)
	if err != nil {
		return nil, err
	}
	return mcp.ReadResourceResult{Contents: contents}, nil
}

// matchTemplate picks the template with the longest matching prefix.
func (r *Router) matchTemplate(uri string) (ResourceHandler, bool) {
	candidates := make([]templateEntry, 0, len(r.templates))
	for _, t := range r.templates {
		if strings.HasPrefix(uri, t.prefix) && len(uri) > len(t.prefix) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].prefix) > len(candidates[j].prefix)
	})
	return candidates[0].handler, true
}
