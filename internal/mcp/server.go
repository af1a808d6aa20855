package mcp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/i18nsync/internal/config"
	"github.com/standardbeagle/i18nsync/internal/indexing"
	"github.com/standardbeagle/i18nsync/internal/types"
	"github.com/standardbeagle/i18nsync/internal/version"
)

// SearchTranslationParams are the arguments of search_translation
type SearchTranslationParams struct {
	Query         string   `json:"query"`
	Scope         string   `json:"scope,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	Max           int      `json:"max,omitempty"`
	CaseSensitive bool     `json:"case_sensitive,omitempty"`
}

// KeyParams address one key, optionally in one language.
// Used by get_translation and delete_translation.
type KeyParams struct {
	Key      string `json:"key"`
	Language string `json:"language,omitempty"`
}

// TranslationContextParams are the arguments of get_translation_context
type TranslationContextParams struct {
	Key string `json:"key"`
	// Depth 0 leaves out the parent; nil means ContextDefaultDepth
	Depth     *int     `json:"depth,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// UpdateTranslationParams are the arguments of update_translation
type UpdateTranslationParams struct {
	Key      string        `json:"key"`
	Language string        `json:"language"`
	Value    *types.Scalar `json:"value"`
}

// BatchUpdateParams are the arguments of batch_update
type BatchUpdateParams struct {
	Operations []types.BatchOperation `json:"operations"`
}

// ValidateStructureParams are the arguments of validate_structure
type ValidateStructureParams struct {
	BaseLanguage string `json:"base_language,omitempty"`
	AutoFix      bool   `json:"auto_fix,omitempty"`
}

// AnalyzeUsageParams are the arguments of analyze_usage
type AnalyzeUsageParams struct {
	CheckDuplicates bool   `json:"check_duplicates,omitempty"`
	Language        string `json:"language,omitempty"`
}

// InfoParams are the arguments of info
type InfoParams struct {
	Tool string `json:"tool,omitempty"`
}

// NoParams is decoded for tools without arguments so stray fields still warn
type NoParams struct{}

type toolHandler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Server exposes the translation index as MCP tools
type Server struct {
	mgr     *indexing.Manager
	ownsMgr bool
	cfg     *config.Config

	server           *mcp.Server
	diagnosticLogger *DiagnosticLogger

	tools    map[string]*mcp.Tool
	handlers map[string]toolHandler

	shutdownOnce sync.Once
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithDiagnosticLogger replaces the file logger created by NewServer
func WithDiagnosticLogger(dl *DiagnosticLogger) ServerOption {
	return func(s *Server) {
		if dl != nil {
			s.diagnosticLogger = dl
		}
	}
}

// NewServer creates the MCP server. When mgr is nil a Manager is built from
// cfg and owned by the server. The manager is initialized before NewServer
// returns; a failed initialization is logged and leaves an empty, usable index.
func NewServer(mgr *indexing.Manager, cfg *config.Config, opts ...ServerOption) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		tools:    make(map[string]*mcp.Tool),
		handlers: make(map[string]toolHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.diagnosticLogger == nil {
		// CRITICAL: Use file-based logging for MCP to keep stdio clean
		s.diagnosticLogger = NewDiagnosticLogger(true)
	}

	if mgr == nil {
		if cfg == nil {
			return nil, errors.New("NewServer requires a manager or a config")
		}
		s.diagnosticLogger.Printf("Creating new indexing manager")
		var err error
		mgr, err = indexing.NewManager(cfg, indexing.WithLogger(s.diagnosticLogger.Logger()))
		if err != nil {
			return nil, fmt.Errorf("failed to create indexing manager: %w", err)
		}
		s.ownsMgr = true
	}
	s.mgr = mgr
	if s.cfg == nil {
		s.cfg = mgr.Config()
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Version,
	}, nil)
	s.registerTools()

	s.startIndexing()
	return s, nil
}

// startIndexing loads the translation directory and starts the watcher
func (s *Server) startIndexing() {
	if s.mgr.Initialized() {
		return
	}
	start := time.Now()
	if err := s.mgr.Init(context.Background()); err != nil {
		s.diagnosticLogger.Errorf("Initialization of %s failed: %v", s.mgr.TranslationsDir(), err)
		return
	}
	s.diagnosticLogger.Printf("Indexed %s in %v (%d keys, %d languages)",
		s.mgr.TranslationsDir(), time.Since(start), s.mgr.Index().Len(), len(s.mgr.Index().Languages()))
}

// addTool registers a tool with panic protection and records it for info and tests
func (s *Server) addTool(tool *mcp.Tool, handler toolHandler) {
	name := tool.Name
	wrapped := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := s.recoverFromPanic(name, func() (*mcp.CallToolResult, error) {
			return handler(ctx, req)
		})
		s.diagnosticLogger.ToolCall(name, time.Since(start), result != nil && result.IsError, err)
		return result, err
	}
	s.tools[name] = tool
	s.handlers[name] = wrapped
	s.server.AddTool(tool, wrapped)
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func stringListProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: description}
}

func emptySchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
}

func (s *Server) registerTools() {
	// Meta tools - always register these first
	s.addTool(&mcp.Tool{
		Name:        ToolInfo,
		Description: "Get help for any tool. Use 'info' for an overview, 'info <tool>' for parameters, 'info version' for build info.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tool": stringProp("Tool name to describe (e.g. 'search_translation', 'version')"),
			},
		},
	}, s.handleInfo)

	s.addTool(&mcp.Tool{
		Name:        ToolSearchTranslation,
		Description: "Search translation keys and values. Ranked: exact > prefix > substring. Returns close key suggestions when nothing matches.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": stringProp("Text to search for"),
				"scope": {
					Type:        "string",
					Enum:        []any{"keys", "values", "both"},
					Description: "What to match against (default: both)",
				},
				"languages": stringListProp("Only match values in these languages"),
				"max": {
					Type:        "integer",
					Description: fmt.Sprintf("Maximum results (default: %d, hard cap: %d)", SearchDefaultMax, SearchHardCap),
				},
				"case_sensitive": {Type: "boolean", Description: "Match case exactly"},
			},
			Required: []string{"query"},
		},
	}, s.handleSearchTranslation)

	s.addTool(&mcp.Tool{
		Name:        ToolGetTranslation,
		Description: "Get a key's value in one language, or in every language when language is omitted.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"key":      stringProp("Dot-separated key path, e.g. 'common.buttons.save'"),
				"language": stringProp("Language code, e.g. 'en'"),
			},
			Required: []string{"key"},
		},
	}, s.handleGetTranslation)

	s.addTool(&mcp.Tool{
		Name:        ToolGetTranslationContext,
		Description: "Get a key with its parent, direct children and siblings in the key tree.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"key": stringProp("Dot-separated key path"),
				"depth": {
					Type:        "integer",
					Description: fmt.Sprintf("0 omits the parent (default: %d)", ContextDefaultDepth),
				},
				"languages": stringListProp("Only include these languages"),
			},
			Required: []string{"key"},
		},
	}, s.handleGetTranslationContext)

	s.addTool(&mcp.Tool{
		Name:        ToolUpdateTranslation,
		Description: "Set a translation. The value is written back to the language file after the auto-sync delay, preserving formatting.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"key":      stringProp("Dot-separated key path"),
				"language": stringProp("Language code"),
				"value": {
					Types:       []string{"string", "number", "boolean"},
					Description: "New value",
				},
			},
			Required: []string{"key", "language", "value"},
		},
	}, s.handleUpdateTranslation)

	s.addTool(&mcp.Tool{
		Name:        ToolDeleteTranslation,
		Description: "Delete a key from one language, or from every language when language is omitted.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"key":      stringProp("Dot-separated key path"),
				"language": stringProp("Language code; omit to delete from all languages"),
			},
			Required: []string{"key"},
		},
	}, s.handleDeleteTranslation)

	s.addTool(&mcp.Tool{
		Name:        ToolBatchUpdate,
		Description: "Apply set and delete operations atomically. If any operation fails, none is applied.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"operations": {
					Type: "array",
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"type":     {Type: "string", Enum: []any{"set", "delete"}},
							"keyPath":  stringProp("Dot-separated key path"),
							"language": stringProp("Language code; required for set, optional for delete"),
							"value":    {Types: []string{"string", "number", "boolean"}, Description: "Value for set"},
						},
						Required: []string{"type", "keyPath"},
					},
					Description: "Operations in application order",
				},
			},
			Required: []string{"operations"},
		},
	}, s.handleBatchUpdate)

	s.addTool(&mcp.Tool{
		Name:        ToolValidateStructure,
		Description: "Report keys missing from or extra in each language compared to the base language, and value type mismatches.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"base_language": stringProp("Reference language (default: configured base language)"),
				"auto_fix": {
					Type:        "boolean",
					Description: "Fill missing keys with '[MISSING: <base value>]' placeholders",
				},
			},
		},
	}, s.handleValidateStructure)

	s.addTool(&mcp.Tool{
		Name:        ToolAnalyzeUsage,
		Description: "Per-language completeness, optionally with groups of keys sharing an identical value.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"check_duplicates": {Type: "boolean", Description: "Report duplicate values"},
				"language":         stringProp("Only report this language"),
			},
		},
	}, s.handleAnalyzeUsage)

	s.addTool(&mcp.Tool{
		Name:        ToolListLanguages,
		Description: "List loaded languages with key counts and source files.",
		InputSchema: emptySchema(),
	}, s.handleListLanguages)

	s.addTool(&mcp.Tool{
		Name:        ToolGetStats,
		Description: "Index, watcher and auto-sync statistics.",
		InputSchema: emptySchema(),
	}, s.handleGetStats)

	s.addTool(&mcp.Tool{
		Name:        ToolRefreshIndex,
		Description: "Re-read every translation file from disk. Concurrent calls share one refresh.",
		InputSchema: emptySchema(),
	}, s.handleRefreshIndex)

	s.addTool(&mcp.Tool{
		Name:        ToolSyncNow,
		Description: "Write pending in-memory changes to the language files now instead of waiting for the auto-sync delay.",
		InputSchema: emptySchema(),
	}, s.handleSyncNow)
}

// toolNames returns the registered tool names in order
func (s *Server) toolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// recoverFromPanic provides panic recovery middleware for MCP operations.
// A panic becomes an error result rather than killing the stdio session.
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnosticLogger.Errorf("PANIC RECOVERED in %s: %v", operation, r)
			s.diagnosticLogger.Printf("Stack trace: %s", debug.Stack())

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.diagnosticLogger.Printf("Memory stats - Alloc: %d KB, Sys: %d KB, NumGC: %d",
				m.Alloc/1024, m.Sys/1024, m.NumGC)

			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		s.diagnosticLogger.Printf("Error in %s: %v", operation, err)
		return createSmartErrorResponse(operation, err, map[string]interface{}{
			"timestamp":   time.Now().Format(time.RFC3339),
			"initialized": s.mgr.Initialized(),
		})
	}
	return result, nil
}

// Start serves MCP over stdio until ctx is done or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	s.diagnosticLogger.Printf("Starting MCP server with stdio transport (log: %s)", s.diagnosticLogger.GetLogPath())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Shutdown stops the manager if the server owns it and closes the diagnostic log
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.diagnosticLogger.Printf("Shutting down MCP server...")

		if s.ownsMgr {
			done := make(chan error, 1)
			go func() { done <- s.mgr.Close() }()
			select {
			case err = <-done:
			case <-ctx.Done():
				err = ctx.Err()
			}
			if err != nil {
				s.diagnosticLogger.Errorf("Manager shutdown: %v", err)
			}
		}

		s.diagnosticLogger.Printf("MCP server shutdown complete")
		_ = s.diagnosticLogger.Close()
	})
	return err
}

// Manager returns the manager the tools operate on
func (s *Server) Manager() *indexing.Manager {
	return s.mgr
}

// GetHandlerForTesting returns a handler function for testing purposes
func (s *Server) GetHandlerForTesting(toolName string) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h, ok := s.handlers[toolName]; ok {
		return h
	}
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return createErrorResponse("GetHandlerForTesting", fmt.Errorf("unknown tool: %s", toolName))
	}
}

// Close releases resources held by the Server
func (s *Server) Close() error {
	return s.Shutdown(context.Background())
}
