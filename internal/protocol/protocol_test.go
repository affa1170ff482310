package protocol

import (
	"encoding/json"
	"testing"
)

func TestIsNotification(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"jsonrpc":"2.0","method":"ping"}`, true},
		{`{"jsonrpc":"2.0","id":null,"method":"ping"}`, true},
		{`{"jsonrpc":"2.0","id":0,"method":"ping"}`, false},
		{`{"jsonrpc":"2.0","id":"abc","method":"ping"}`, false},
	}
	for _, tt := range tests {
		var r Request
		if err := json.Unmarshal([]byte(tt.raw), &r); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if got := r.IsNotification(); got != tt.want {
			t.Errorf("IsNotification(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		code int
	}{
		{"ok", Request{JSONRPC: "2.0", ID: json.RawMessage("1"), Method: "ping"}, 0},
		{"wrong version", Request{JSONRPC: "1.0", Method: "ping"}, CodeInvalidRequest},
		{"no method", Request{JSONRPC: "2.0", ID: json.RawMessage("1")}, CodeInvalidRequest},
		{"object id", Request{JSONRPC: "2.0", ID: json.RawMessage(`{"a":1}`), Method: "ping"}, CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.code == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Code != tt.code {
				t.Errorf("err = %v, want code %d", err, tt.code)
			}
		})
	}
}

func TestDecodeParams(t *testing.T) {
	var p InitializeParams
	r := Request{Params: json.RawMessage(`{"protocolVersion":"2024-11-05","clientInfo":{"name":"cli","version":"1"}}`)}
	if err := r.DecodeParams(&p); err != nil {
		t.Fatal(err)
	}
	if p.ClientInfo.Name != "cli" {
		t.Errorf("client name = %q", p.ClientInfo.Name)
	}

	bad := Request{Params: json.RawMessage(`[1,2]`)}
	if err := bad.DecodeParams(&p); err == nil || err.Code != CodeInvalidParams {
		t.Errorf("err = %v, want invalid params", err)
	}

	empty := Request{}
	if err := empty.DecodeParams(&p); err != nil {
		t.Errorf("absent params should be accepted: %v", err)
	}
}

func TestResponseShape(t *testing.T) {
	ok, err := json.Marshal(Result(json.RawMessage("7"), nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(ok) != `{"jsonrpc":"2.0","id":7,"result":{}}` {
		t.Errorf("result = %s", ok)
	}

	fail, err := json.Marshal(Failure(nil, NewError(CodeParseError, "bad json")))
	if err != nil {
		t.Fatal(err)
	}
	if string(fail) != `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"bad json"}}` {
		t.Errorf("failure = %s", fail)
	}
}

func TestNewInitializeResult(t *testing.T) {
	res := NewInitializeResult("1.2.3", "")
	if res.ProtocolVersion != ProtocolVersion || res.ServerInfo.Name != ServerName || res.ServerInfo.Version != "1.2.3" {
		t.Errorf("result = %+v", res)
	}
	if res.Capabilities.Tools == nil || res.Capabilities.Prompts == nil || res.Capabilities.Resources == nil {
		t.Error("all three capabilities should be advertised")
	}
}
