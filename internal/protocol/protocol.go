// Package protocol defines the newline-delimited JSON-RPC 2.0 envelope the
// server speaks on stdio, its error taxonomy and the handshake payloads.
//
// Request and response bodies for tools, prompts and resources reuse the
// mcp-go types; only the envelope and handshake live here.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// Version is the JSON-RPC version carried by every message.
	Version = "2.0"
	// ProtocolVersion is the MCP revision the server implements.
	ProtocolVersion = "2024-11-05"
	// ServerName identifies the server in the handshake.
	ServerName = "phishri-mcp"
)

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Domain error codes, in the range JSON-RPC reserves for servers.
const (
	CodeDoorNotFound   = -32000
	CodeIndexError     = -32001
	CodeBootstrapError = -32002
	CodeSearchError    = -32003
)

// Method names.
const (
	MethodInitialize            = "initialize"
	MethodInitialized           = "notifications/initialized"
	MethodInitializedLegacy     = "initialized"
	MethodCancelled             = "notifications/cancelled"
	MethodPing                  = "ping"
	MethodToolsList             = "tools/list"
	MethodToolsCall             = "tools/call"
	MethodPromptsList           = "prompts/list"
	MethodPromptsGet            = "prompts/get"
	MethodResourcesList         = "resources/list"
	MethodResourcesRead         = "resources/read"
	MethodResourceTemplatesList = "resources/templates/list"
)

// Request is an incoming message. A request without an id (or with a null
// id) is a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	id := bytes.TrimSpace(r.ID)
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

// Validate checks the envelope shape.
func (r *Request) Validate() *Error {
	if r.JSONRPC != Version {
		return NewError(CodeInvalidRequest, fmt.Sprintf("unsupported jsonrpc version %q", r.JSONRPC))
	}
	if r.Method == "" {
		return NewError(CodeInvalidRequest, "method is required")
	}
	if id := bytes.TrimSpace(r.ID); len(id) > 0 {
		switch id[0] {
		case '"', 'n', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		default:
			return NewError(CodeInvalidRequest, "id must be a string or a number")
		}
	}
	return nil
}

// DecodeParams unmarshals the request params into v. Absent params leave v
// untouched.
func (r *Request) DecodeParams(v any) *Error {
	if len(bytes.TrimSpace(r.Params)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Params, v); err != nil {
		return NewError(CodeInvalidParams, "invalid params: "+err.Error())
	}
	return nil
}

// Response is an outgoing message. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewError builds an error object.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NullID is the id used when the request id could not be read.
var NullID = json.RawMessage("null")

// Result builds a success response for id.
func Result(id json.RawMessage, result any) *Response {
	if result == nil {
		result = struct{}{}
	}
	return &Response{JSONRPC: Version, ID: orNull(id), Result: result}
}

// Failure builds an error response for id.
func Failure(id json.RawMessage, err *Error) *Response {
	return &Response{JSONRPC: Version, ID: orNull(id), Error: err}
}

func orNull(id json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(id)) == 0 {
		return NullID
	}
	return id
}

// ─── Handshake ───────────────────────────────────────────────────────────────

// InitializeParams is sent by the client on initialize.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    map[string]any     `json:"capabilities,omitempty"`
	ClientInfo      mcp.Implementation `json:"clientInfo"`
}

// Capabilities advertises what the server supports.
type Capabilities struct {
	Tools     *ListChanged        `json:"tools,omitempty"`
	Prompts   *ListChanged        `json:"prompts,omitempty"`
	Resources *ResourceCapability `json:"resources,omitempty"`
}

// ListChanged is the capability flag object for tools and prompts.
type ListChanged struct {
	ListChanged bool `json:"listChanged"`
}

// ResourceCapability is the capability flag object for resources.
type ResourceCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// InitializeResult is the server's handshake answer.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    Capabilities       `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// NewInitializeResult returns the handshake answer for a server version.
func NewInitializeResult(serverVersion, instructions string) InitializeResult {
	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: Capabilities{
			Tools:     &ListChanged{},
			Prompts:   &ListChanged{},
			Resources: &ResourceCapability{},
		},
		ServerInfo:   mcp.Implementation{Name: ServerName, Version: serverVersion},
		Instructions: instructions,
	}
}
