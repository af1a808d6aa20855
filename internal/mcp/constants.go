package mcp

// Tool names
const (
	ToolSearchTranslation     = "search_translation"
	ToolGetTranslation        = "get_translation"
	ToolGetTranslationContext = "get_translation_context"
	ToolUpdateTranslation     = "update_translation"
	ToolDeleteTranslation     = "delete_translation"
	ToolBatchUpdate           = "batch_update"
	ToolValidateStructure     = "validate_structure"
	ToolAnalyzeUsage          = "analyze_usage"
	ToolListLanguages         = "list_languages"
	ToolGetStats              = "get_stats"
	ToolRefreshIndex          = "refresh_index"
	ToolSyncNow               = "sync_now"
	ToolInfo                  = "info"
)

// Default values for tool parameters
const (
	SearchDefaultMax = 20 // Keeps responses small enough for an AI context window
	SearchHardCap    = 100

	ContextDefaultDepth = 1

	// SuggestionLimit bounds "did you mean" lists in not-found errors
	SuggestionLimit = 5
)

// ServerName is reported to MCP clients during initialization
const ServerName = "i18nsync-mcp-server"

// MCPProtocolVersion is the protocol revision the server was built against
const MCPProtocolVersion = "2025-06-18"
