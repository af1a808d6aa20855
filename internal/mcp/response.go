package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/types"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createFailedJSONResponse marshals data like createJSONResponse but marks the
// result as an error, for operations that report partial outcomes
func createFailedJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	response, err := createJSONResponse(data)
	if err != nil {
		return nil, err
	}
	response.IsError = true
	return response, nil
}

// createErrorResponse creates a standardized error response for MCP tools
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}

	// IsError tells the client the tool call failed
	// "Any errors that originate from the tool should be reported inside the result
	// object, with isError set to true, not as an MCP protocol-level error response.
	// Otherwise, the LLM would not be able to see that an error occurred and self-correct."
	response.IsError = true

	return response, nil
}

// createSmartErrorResponse creates an enhanced error response with context-aware suggestions
func createSmartErrorResponse(operation string, err error, context map[string]interface{}) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}

	// Add suggestions based on the error type and context
	suggestions := generateErrorSuggestions(operation, err, context)
	if len(suggestions) > 0 {
		errorData["suggestions"] = suggestions
	}

	if help := getOperationHelp(operation); help != "" {
		errorData["help"] = help
	}

	if related := getRelatedOperations(operation); len(related) > 0 {
		errorData["related_operations"] = related
	}

	if len(context) > 0 {
		errorData["context"] = context
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}

	// IsError tells the client the tool call failed
	response.IsError = true

	return response, nil
}

// generateErrorSuggestions generates context-aware suggestions for common errors
func generateErrorSuggestions(operation string, err error, context map[string]interface{}) []string {
	var suggestions []string
	errorMsg := err.Error()

	switch {
	case errors.Is(err, syncerrors.ErrNotFound):
		if similar, ok := context["did_you_mean"].([]string); ok && len(similar) > 0 {
			suggestions = append(suggestions, "Did you mean: "+strings.Join(similar, ", "))
		}
		suggestions = append(suggestions, "Use search_translation to find keys by partial name or by value")
		suggestions = append(suggestions, "Key paths are case-sensitive")
	case errors.Is(err, syncerrors.ErrInvalidKeyPath):
		suggestions = append(suggestions, "Key paths are dot-separated segments like 'common.buttons.save'")
		suggestions = append(suggestions, "Segments cannot be empty, so leading, trailing and doubled dots are rejected")
	case errors.Is(err, types.ErrInvalidScalar):
		suggestions = append(suggestions, "Values must be a string, number or boolean; objects, arrays and null are not translations")
	case errors.Is(err, syncerrors.ErrStructuralConflict):
		suggestions = append(suggestions, "A parent of this key already holds a value in the file; rename one of the keys")
	case errors.Is(err, syncerrors.ErrDirectoryMissing):
		suggestions = append(suggestions, "Create the translations directory or set translations.dir in .i18nsync.kdl")
		suggestions = append(suggestions, "Call refresh_index once the directory exists")
	}

	switch operation {
	case ToolSearchTranslation:
		if errorMsg == "query is required" {
			suggestions = append(suggestions, `Provide a query like {"query": "save"}`)
		}
		if strings.Contains(errorMsg, "invalid scope") {
			suggestions = append(suggestions, "Supported scopes: 'keys', 'values', 'both' (default)")
		}
	case ToolValidateStructure:
		if strings.Contains(errorMsg, "base language") {
			suggestions = append(suggestions, "Use list_languages to see which languages are loaded")
		}
	case ToolBatchUpdate:
		suggestions = append(suggestions, "No operation was applied; fix the failing operation and resend the whole batch")
	}

	return suggestions
}

// getOperationHelp provides helpful information about each operation
func getOperationHelp(operation string) string {
	helpMap := map[string]string{
		ToolSearchTranslation:     "Search key paths and values. Exact matches rank above prefix matches, which rank above substring matches.",
		ToolGetTranslation:        "Read one key in one language, or in every language when language is omitted.",
		ToolGetTranslationContext: "Read a key together with its parent, children and siblings in the key tree.",
		ToolUpdateTranslation:     "Set a value in memory. The change is written to the language file after the auto-sync delay.",
		ToolDeleteTranslation:     "Remove a key from one language, or from all languages when language is omitted.",
		ToolBatchUpdate:           "Apply set and delete operations atomically: all of them or none.",
		ToolValidateStructure:     "Compare every language against the base language's key set.",
		ToolRefreshIndex:          "Re-read the translation directory from disk.",
		ToolSyncNow:               "Write pending in-memory changes to disk immediately.",
	}
	return helpMap[operation]
}

// getRelatedOperations suggests related operations that might be helpful
func getRelatedOperations(operation string) []string {
	relatedMap := map[string][]string{
		ToolSearchTranslation:     {ToolGetTranslation, ToolGetTranslationContext},
		ToolGetTranslation:        {ToolSearchTranslation, ToolGetTranslationContext},
		ToolGetTranslationContext: {ToolGetTranslation, ToolSearchTranslation},
		ToolUpdateTranslation:     {ToolBatchUpdate, ToolSyncNow},
		ToolDeleteTranslation:     {ToolBatchUpdate, ToolSyncNow},
		ToolBatchUpdate:           {ToolUpdateTranslation, ToolValidateStructure},
		ToolValidateStructure:     {ToolAnalyzeUsage, ToolListLanguages},
		ToolRefreshIndex:          {ToolGetStats},
		ToolSyncNow:               {ToolGetStats},
	}
	return relatedMap[operation]
}
