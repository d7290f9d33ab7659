// Package rpc serves the evaluator, analytics and coaching engines as
// JSON-RPC 2.0 tools over stdio, one message per line, for an embedding UI.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/blackwell-systems/smilecoach/internal/coach"
	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

// Version is reported in the initialize handshake.
const Version = "0.1.0"

// protocolVersion is the tool protocol revision the handshake advertises.
const protocolVersion = "2024-11-05"

// maxLine bounds a single request. Frames are never sent over this channel,
// so 4 MiB is generous.
const maxLine = 4 << 20

// Deps are the engines behind the tools. History may be nil, in which case
// only evaluate_sample works.
type Deps struct {
	History   *history.Service
	Identity  history.Identity
	Evaluator *smile.Evaluator
	Coach     *coach.Engine
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server answers line-delimited JSON-RPC requests.
type Server struct {
	deps    Deps
	methods map[string]method
	tools   []toolDef
	index   map[string]int
}

// method handles one JSON-RPC method. A non-nil *jsonrpcError becomes the
// response's error member.
type method func(ctx context.Context, params json.RawMessage) (any, *jsonrpcError)

type toolDef struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     toolHandler
}

type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

type jsonrpcRequest struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Result  any              `json:"result,omitempty"`
	Error   *jsonrpcError    `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// toolsCallResult wraps a tool result as a text content item holding JSON.
type toolsCallResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolListEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// NewServer constructs a Server with every tool registered.
func NewServer(d Deps) *Server {
	if d.Evaluator == nil {
		d.Evaluator = smile.NewEvaluator(smile.DefaultWeights())
	}
	if d.Coach == nil {
		d.Coach = coach.NewDefaultEngine()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &Server{deps: d, index: make(map[string]int)}
	s.methods = map[string]method{
		"initialize": s.initialize,
		"ping":       s.ping,
		"tools/list": s.listTools,
		"tools/call": s.callTool,
	}
	addTools(s)
	return s
}

// registerTool adds def, replacing any tool of the same name in place.
func (s *Server) registerTool(def toolDef) {
	if i, ok := s.index[def.Name]; ok {
		s.tools[i] = def
		return
	}
	s.index[def.Name] = len(s.tools)
	s.tools = append(s.tools, def)
}

// Run serves requests from r until ctx is cancelled or r reaches EOF. Clean
// shutdown returns nil.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	lines, readErr := readLines(ctx, r)
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			resp := s.handle(ctx, line)
			if resp == nil {
				continue
			}
			if err := enc.Encode(resp); err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return err
			}
		}
	}
}

// readLines feeds r's lines to the returned channel, closing it at EOF. A
// read failure is delivered on the error channel instead.
func readLines(ctx context.Context, r io.Reader) (<-chan []byte, <-chan error) {
	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			errc <- err
			return
		}
		close(lines)
	}()
	return lines, errc
}

// handle answers one request line. Notifications return nil.
func (s *Server) handle(ctx context.Context, line []byte) *jsonrpcResponse {
	var req jsonrpcRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return failure(nil, codeParseError, "Parse error")
	}
	if req.ID == nil {
		return nil
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return failure(req.ID, codeInvalidRequest, "Invalid Request")
	}

	m, ok := s.methods[req.Method]
	if !ok {
		return failure(req.ID, codeMethodNotFound, "Method not found")
	}
	result, rpcErr := m(ctx, req.Params)
	if rpcErr != nil {
		return &jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func failure(id *json.RawMessage, code int, msg string) *jsonrpcResponse {
	return &jsonrpcResponse{JSONRPC: "2.0", ID: id, Error: &jsonrpcError{Code: code, Message: msg}}
}

func (s *Server) initialize(context.Context, json.RawMessage) (any, *jsonrpcError) {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo":      map[string]any{"name": "smilecoach", "version": Version},
	}, nil
}

func (s *Server) ping(context.Context, json.RawMessage) (any, *jsonrpcError) {
	return map[string]any{}, nil
}

func (s *Server) listTools(context.Context, json.RawMessage) (any, *jsonrpcError) {
	entries := make([]toolListEntry, len(s.tools))
	for i, t := range s.tools {
		entries[i] = toolListEntry{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return map[string]any{"tools": entries}, nil
}

// callTool runs one tool. Tool failures are results with IsError set, not
// protocol errors.
func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *jsonrpcError) {
	var params toolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil || params.Name == "" {
		return nil, &jsonrpcError{Code: codeInvalidParams, Message: "Invalid params"}
	}
	i, ok := s.index[params.Name]
	if !ok {
		return errorResult(fmt.Sprintf("unknown tool: %s", params.Name)), nil
	}

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	result, err := s.tools[i].Handler(ctx, args)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return toolsCallResult{Content: []textContent{{Type: "text", Text: string(data)}}}, nil
}

func errorResult(msg string) toolsCallResult {
	return toolsCallResult{Content: []textContent{{Type: "text", Text: msg}}, IsError: true}
}
