package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Stryk91/PhiSHRI/internal/door"
	"github.com/Stryk91/PhiSHRI/internal/protocol"
	"github.com/Stryk91/PhiSHRI/internal/search"
	"github.com/Stryk91/PhiSHRI/internal/session"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

func newTestRouter(t *testing.T) (*Router, *session.Session) {
	t.Helper()
	sess := session.New(t.TempDir(), "default", "s1")
	r := New(Options{Version: "test", Session: sess})

	r.AddTool(mcp.NewTool("echo", mcp.WithDescription("echo")), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("echo:" + req.GetString("text", "")), nil
	})
	r.AddTool(mcp.NewTool("fail", mcp.WithDescription("fail")), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		switch req.GetString("kind", "") {
		case "notfound":
			return nil, door.NotFound("Z99")
		case "index":
			return nil, fmt.Errorf("%w: /x/HASH_TABLE.json", door.ErrIndexNotFound)
		case "parse":
			return nil, &door.ParseError{Path: "/x.json", Err: errors.New("eof")}
		case "bootstrap":
			return nil, fmt.Errorf("%w: disk full", session.ErrBootstrap)
		case "search":
			return nil, fmt.Errorf("%w: locked", search.ErrSearch)
		case "params":
			return nil, fmt.Errorf("%w: door_code is required", ErrInvalidParams)
		case "panic":
			panic("boom")
		default:
			return nil, errors.New("plain failure")
		}
	})
	return r, sess
}

func call(t *testing.T, r *Router, msg string) *protocol.Response {
	t.Helper()
	return r.HandleMessage(context.Background(), []byte(msg))
}

func toolCall(id int, name string, args map[string]any) string {
	params, _ := json.Marshal(map[string]any{"name": name, "arguments": args})
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":%s}`, id, params)
}

func resultText(t *testing.T, resp *protocol.Response) string {
	t.Helper()
	if resp == nil || resp.Error != nil {
		t.Fatalf("expected success, got %+v", resp)
	}
	res, ok := resp.Result.(*mcp.CallToolResult)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return tc.Text
}

// --- Envelope ---

func TestHandleMessage_ParseError(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, `{"jsonrpc":`)
	if resp == nil || resp.Error == nil || resp.Error.Code != protocol.CodeParseError {
		t.Fatalf("resp = %+v, want parse error", resp)
	}
	if string(resp.ID) != "null" {
		t.Errorf("id = %s, want null", resp.ID)
	}
}

func TestHandleMessage_WellFormedButNotARequest(t *testing.T) {
	r, _ := newTestRouter(t)
	tests := []struct {
		name string
		msg  string
		want int
	}{
		{"array", `[1,2]`, protocol.CodeInvalidRequest},
		{"string", `"ping"`, protocol.CodeInvalidRequest},
		{"method of wrong type", `{"jsonrpc":"2.0","id":1,"method":5}`, protocol.CodeInvalidRequest},
		{"truncated", `{bad`, protocol.CodeParseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, r, tt.msg)
			if resp == nil || resp.Error == nil || resp.Error.Code != tt.want {
				t.Fatalf("resp = %+v, want code %d", resp, tt.want)
			}
			if string(resp.ID) != "null" {
				t.Errorf("id = %s, want null", resp.ID)
			}
		})
	}
}

func TestHandleMessage_InvalidEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, `{"jsonrpc":"1.0","id":3,"method":"ping"}`)
	if resp == nil || resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
		t.Fatalf("resp = %+v, want invalid request", resp)
	}
	if string(resp.ID) != "3" {
		t.Errorf("id = %s, want 3", resp.ID)
	}
}

func TestHandleMessage_MethodNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, `{"jsonrpc":"2.0","id":"a","method":"doors/explode"}`)
	if resp == nil || resp.Error == nil || resp.Error.Code != protocol.CodeMethodNotFound {
		t.Fatalf("resp = %+v, want method not found", resp)
	}
}

func TestHandleMessage_NotificationsNeverAnswered(t *testing.T) {
	r, _ := newTestRouter(t)
	msgs := []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"no/such/method"}`,
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"fail","arguments":{"kind":"notfound"}}}`,
		`{"jsonrpc":"2.0","id":null,"method":"tools/call","params":{"name":"fail","arguments":{"kind":"panic"}}}`,
		`{"jsonrpc":"1.0","method":"ping"}`,
	}
	for _, m := range msgs {
		if resp := call(t, r, m); resp != nil {
			t.Errorf("notification %s answered with %+v", m, resp)
		}
	}
}

func TestPing(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"jsonrpc":"2.0","id":1,"result":{}}` {
		t.Errorf("ping = %s", data)
	}
}

// --- Handshake ---

func TestInitialize_DerivesAgentAndCreatesDirs(t *testing.T) {
	r, sess := newTestRouter(t)
	if r.State() != StateUninitialized {
		t.Fatalf("initial state = %v", r.State())
	}

	resp := call(t, r, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"Claude Desktop","version":"0.9"}}}`)
	if resp == nil || resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp)
	}
	res, ok := resp.Result.(protocol.InitializeResult)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	if res.ServerInfo.Name != protocol.ServerName || res.ServerInfo.Version != "test" {
		t.Errorf("server info = %+v", res.ServerInfo)
	}
	if r.State() != StateInitialized {
		t.Errorf("state = %v, want initialized", r.State())
	}
	if sess.AgentID() != "Claude_Desktop" {
		t.Errorf("agent = %q, want Claude_Desktop", sess.AgentID())
	}
	if _, err := os.Stat(filepath.Join(sess.Dir(), session.CheckpointsDir)); err != nil {
		t.Errorf("session dirs not created: %v", err)
	}
}

func TestInitialize_LockedAgent(t *testing.T) {
	sess := session.New(t.TempDir(), "pinned", "s1")
	r := New(Options{Session: sess, LockAgent: true})
	call(t, r, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":{"name":"other"}}}`)
	if sess.AgentID() != "pinned" {
		t.Errorf("agent = %q, want pinned", sess.AgentID())
	}
}

func TestInitialize_BadParams(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":[1]}`)
	if resp == nil || resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Fatalf("resp = %+v, want invalid params", resp)
	}
	if r.State() != StateUninitialized {
		t.Error("failed handshake must not initialize")
	}
}

func TestOperationsAcceptedBeforeInitialize(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, toolCall(1, "echo", map[string]any{"text": "hi"}))
	if got := resultText(t, resp); got != "echo:hi" {
		t.Errorf("text = %q", got)
	}
}

// --- Tools ---

func TestToolsList(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	res, ok := resp.Result.(mcp.ListToolsResult)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	if len(res.Tools) != 2 || res.Tools[0].Name != "echo" || res.Tools[1].Name != "fail" {
		t.Errorf("tools = %+v", res.Tools)
	}
}

func TestToolsCall_ErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t)
	tests := []struct {
		kind string
		code int
	}{
		{"notfound", protocol.CodeDoorNotFound},
		{"index", protocol.CodeIndexError},
		{"parse", protocol.CodeIndexError},
		{"bootstrap", protocol.CodeBootstrapError},
		{"search", protocol.CodeSearchError},
		{"params", protocol.CodeInvalidParams},
		{"panic", protocol.CodeInternalError},
		{"other", protocol.CodeInternalError},
	}
	for i, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			resp := call(t, r, toolCall(i+1, "fail", map[string]any{"kind": tt.kind}))
			if resp == nil || resp.Error == nil {
				t.Fatalf("resp = %+v, want error", resp)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %d, want %d (%s)", resp.Error.Code, tt.code, resp.Error.Message)
			}
			if resp.Result != nil {
				t.Error("error response must not carry a result")
			}
		})
	}
}

func TestToolsCall_UnknownAndMissingName(t *testing.T) {
	r, _ := newTestRouter(t)
	resp := call(t, r, toolCall(1, "phishri_nope", nil))
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams || !strings.Contains(resp.Error.Message, "Unknown tool") {
		t.Errorf("unknown tool resp = %+v", resp.Error)
	}
	resp = call(t, r, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Errorf("missing name resp = %+v", resp.Error)
	}
}

func TestRouterSurvivesPanic(t *testing.T) {
	r, _ := newTestRouter(t)
	call(t, r, toolCall(1, "fail", map[string]any{"kind": "panic"}))
	if got := resultText(t, call(t, r, toolCall(2, "echo", map[string]any{"text": "still here"}))); got != "echo:still here" {
		t.Errorf("text = %q", got)
	}
}

// --- Prompts / Resources ---

func TestPromptsGet(t *testing.T) {
	r, _ := newTestRouter(t)
	r.AddPrompt(mcp.NewPrompt("greet", mcp.WithPromptDescription("greet")), func(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: "greet",
			Messages: []mcp.PromptMessage{{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent("hello " + req.Params.Arguments["name"]),
			}},
		}, nil
	})

	resp := call(t, r, `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"greet","arguments":{"name":"ana"}}}`)
	res, ok := resp.Result.(*mcp.GetPromptResult)
	if !ok {
		t.Fatalf("result type = %T (%+v)", resp.Result, resp.Error)
	}
	if tc := res.Messages[0].Content.(mcp.TextContent); tc.Text != "hello ana" {
		t.Errorf("text = %q", tc.Text)
	}

	resp = call(t, r, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"nope"}}`)
	if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Errorf("unknown prompt resp = %+v", resp.Error)
	}
}

func TestResourcesRead_FixedAndTemplate(t *testing.T) {
	r, _ := newTestRouter(t)
	text := func(uri, body string) []mcp.ResourceContents {
		return []mcp.ResourceContents{mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: body}}
	}
	r.AddResource(mcp.NewResource("phishri://index", "index"), func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return text(req.Params.URI, "fixed"), nil
	})
	r.AddResourceTemplate(mcp.NewResourceTemplate("phishri://door/{code}", "door"), "phishri://door/", func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		code := strings.TrimPrefix(req.Params.URI, "phishri://door/")
		if code == "Z99" {
			return nil, door.NotFound(code)
		}
		return text(req.Params.URI, code), nil
	})

	read := func(id int, uri string) *protocol.Response {
		return call(t, r, fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"resources/read","params":{"uri":%q}}`, id, uri))
	}

	for uri, want := range map[string]string{"phishri://index": "fixed", "phishri://door/T01": "T01"} {
		resp := read(1, uri)
		res, ok := resp.Result.(mcp.ReadResourceResult)
		if !ok {
			t.Fatalf("%s: result type = %T (%+v)", uri, resp.Result, resp.Error)
		}
		if got := res.Contents[0].(mcp.TextResourceContents).Text; got != want {
			t.Errorf("%s: text = %q, want %q", uri, got, want)
		}
	}

	if resp := read(2, "phishri://door/Z99"); resp.Error == nil || resp.Error.Code != protocol.CodeDoorNotFound {
		t.Errorf("missing door resp = %+v", resp.Error)
	}
	if resp := read(3, "phishri://nowhere"); resp.Error == nil || resp.Error.Code != protocol.CodeInvalidParams {
		t.Errorf("unknown resource resp = %+v", resp.Error)
	}
}

// --- Loop ---

func TestServe_OneResponsePerRequestInOrder(t *testing.T) {
	r, _ := newTestRouter(t)
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		``,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		toolCall(2, "echo", map[string]any{"text": "x"}),
		`not json`,
		`{"jsonrpc":"2.0","id":3,"method":"missing"}`,
	}, "\n")

	var out bytes.Buffer
	if err := r.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d responses, want 4:\n%s", len(lines), out.String())
	}
	wantIDs := []string{"1", "2", "null", "3"}
	for i, line := range lines {
		var resp struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("line %d not JSON: %v", i, err)
		}
		if string(resp.ID) != wantIDs[i] {
			t.Errorf("line %d id = %s, want %s", i, resp.ID, wantIDs[i])
		}
	}
}

func TestServe_StopsOnCancelledContext(t *testing.T) {
	r, _ := newTestRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	err := r.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("no response expected after cancel, got %s", out.String())
	}
}
