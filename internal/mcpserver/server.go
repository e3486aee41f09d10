// Package mcpserver exposes calculator sessions as MCP tools so an assistant
// can drive the keypad.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/session"
)

// Server wraps the session manager to provide MCP tool access.
type Server struct {
	sessions *session.Manager
	server   *server.MCPServer
}

// New creates an MCP server backed by sessions.
func New(sessions *session.Manager, version string) *Server {
	s := &Server{sessions: sessions}

	mcpServer := server.NewMCPServer(
		"go-chi-calculator",
		version,
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)

	s.server = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("calculator_new_session",
			mcp.WithDescription("Start a calculator session showing 0. Returns the session id and state."),
		),
		s.handleNewSession,
	)

	mcpServer.AddTool(
		mcp.NewTool("calculator_press",
			mcp.WithDescription("Press keys on a session's keypad, in order. Returns the display after every key."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id from calculator_new_session"),
			),
			mcp.WithString("keys",
				mcp.Required(),
				mcp.Description("Space separated keys, e.g. '12 + 3 ='. Keys: 0-9 . + - × ÷ = C % +/-"),
			),
		),
		s.handlePress,
	)

	mcpServer.AddTool(
		mcp.NewTool("calculator_state",
			mcp.WithDescription("Show a session's display, pending operation and key tape."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id from calculator_new_session"),
			),
		),
		s.handleState,
	)

	mcpServer.AddTool(
		mcp.NewTool("calculator_clear",
			mcp.WithDescription("Press C: reset a session to 0 with nothing pending."),
			mcp.WithString("session_id",
				mcp.Required(),
				mcp.Description("Session id from calculator_new_session"),
			),
		),
		s.handleClear,
	)

	mcpServer.AddTool(
		mcp.NewTool("calculator_evaluate",
			mcp.WithDescription("Run keys on a fresh calculator without keeping a session."),
			mcp.WithString("keys",
				mcp.Required(),
				mcp.Description("Space separated keys, e.g. '2 ÷ 3 ='"),
			),
		),
		s.handleEvaluate,
	)
}

// ServeStdio starts the MCP server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.server)
}

// View is the JSON text returned by the session tools.
type View struct {
	SessionID       string        `json:"session_id,omitempty"`
	Display         string        `json:"display"`
	Operation       string        `json:"operation,omitempty"`
	ActiveOperation string        `json:"active_operation,omitempty"`
	Waiting         bool          `json:"waiting_for_new_value"`
	Phase           engine.Phase  `json:"phase"`
	FontScale       float64       `json:"font_scale"`
	Tape            string        `json:"tape,omitempty"`
	Steps           []engine.Step `json:"steps,omitempty"`
}

func newView(id string, st engine.State, tape []string, steps []engine.Step) View {
	return View{
		SessionID:       id,
		Display:         st.Display,
		Operation:       string(st.Operation),
		ActiveOperation: string(st.ActiveOperation),
		Waiting:         st.WaitingForNewValue,
		Phase:           st.Phase(),
		FontScale:       engine.FontScale(st.Display),
		Tape:            strings.Join(tape, " "),
		Steps:           steps,
	}
}

func (s *Server) handleNewSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create session failed: %v", err)), nil
	}

	observability.Logger.Info("mcp session created", zap.String("session_id", sess.ID))
	return result(newView(sess.ID, sess.State, sess.Tape, nil))
}

func (s *Server) handlePress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	keys, errResult := parseKeys(request)
	if errResult != nil {
		return errResult, nil
	}

	sess, steps, err := s.sessions.Press(ctx, id, keys)
	if err != nil {
		return sessionError("press", id, err), nil
	}

	for _, st := range steps {
		if st.Fallback != "" {
			observability.Logger.Warn("calculator fallback",
				zap.String("session_id", id),
				zap.String("kind", st.Fallback),
			)
		}
	}
	return result(newView(sess.ID, sess.State, sess.Tape, steps))
}

func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return sessionError("get state", id, err), nil
	}
	return result(newView(sess.ID, sess.State, sess.Tape, nil))
}

func (s *Server) handleClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("session_id", "")
	if id == "" {
		return mcp.NewToolResultError("session_id parameter is required"), nil
	}

	sess, err := s.sessions.Clear(ctx, id)
	if err != nil {
		return sessionError("clear", id, err), nil
	}
	return result(newView(sess.ID, sess.State, sess.Tape, nil))
}

func (s *Server) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys, errResult := parseKeys(request)
	if errResult != nil {
		return errResult, nil
	}

	st := engine.NewState()
	steps, err := st.Run(keys)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluate failed: %v", err)), nil
	}
	return result(newView("", st, nil, steps))
}

func parseKeys(request mcp.CallToolRequest) ([]engine.Key, *mcp.CallToolResult) {
	raw := request.GetString("keys", "")
	if strings.TrimSpace(raw) == "" {
		return nil, mcp.NewToolResultError("keys parameter is required")
	}

	keys, err := engine.ParseKeys(raw)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("invalid keys: %v", err))
	}
	return keys, nil
}

func sessionError(action, id string, err error) *mcp.CallToolResult {
	if errors.Is(err, session.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("session %s not found", id))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", action, err))
}

func result(v View) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
