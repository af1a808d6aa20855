package mcp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	syncerrors "github.com/standardbeagle/i18nsync/internal/errors"
	"github.com/standardbeagle/i18nsync/internal/index"
	"github.com/standardbeagle/i18nsync/internal/keypath"
	"github.com/standardbeagle/i18nsync/internal/types"
	"github.com/standardbeagle/i18nsync/internal/version"
	"github.com/standardbeagle/i18nsync/pkg/pathutil"
)

// SearchTranslationResponse is the body of a search_translation result
type SearchTranslationResponse struct {
	Query       string               `json:"query"`
	Scope       index.SearchScope    `json:"scope"`
	Total       int                  `json:"total"`
	Results     []index.SearchResult `json:"results"`
	Suggestions []string             `json:"suggestions,omitempty"`
}

// LanguageInfo describes one loaded language
type LanguageInfo struct {
	Code   string   `json:"code"`
	Keys   int      `json:"keys"`
	IsBase bool     `json:"isBase,omitempty"`
	File   string   `json:"file"`
	Files  []string `json:"sourceFiles,omitempty"`
}

func arguments(req *mcp.CallToolRequest) []byte {
	if req == nil || req.Params == nil {
		return nil
	}
	return req.Params.Arguments
}

func invalidParams(operation string, err error) (*mcp.CallToolResult, error) {
	return createSmartErrorResponse(operation, fmt.Errorf("invalid parameters: %w", err), nil)
}

// relPath shows a path relative to the translations directory
func (s *Server) relPath(path string) string {
	return pathutil.ToRelative(path, s.mgr.TranslationsDir())
}

// relativize rewrites source files for display; the index keeps absolute paths
func (s *Server) relativize(tr types.IndexedTranslation) types.IndexedTranslation {
	out := make(types.IndexedTranslation, len(tr))
	for lang, e := range tr {
		e.SourceFile = s.relPath(e.SourceFile)
		out[lang] = e
	}
	return out
}

func (s *Server) relativizeNode(n *index.ContextNode) {
	if n != nil {
		n.Translations = s.relativize(n.Translations)
	}
}

// suggestKeys lists keys close to key for not-found errors
func (s *Server) suggestKeys(key string) []string {
	suggestions := s.mgr.Index().Suggest(key, SuggestionLimit)
	out := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, sg.KeyPath)
	}
	return out
}

func (s *Server) keyNotFound(operation, key, language string) (*mcp.CallToolResult, error) {
	err := syncerrors.NewIndexError(operation, key, syncerrors.ErrNotFound)
	details := map[string]interface{}{"key": key}
	if language != "" {
		err = err.WithLanguage(language)
		details["language"] = language
		if tr, ok := s.mgr.Index().GetAll(key); ok {
			available := make([]string, 0, len(tr))
			for lang := range tr {
				available = append(available, lang)
			}
			sort.Strings(available)
			details["available_languages"] = available
		}
	}
	if similar := s.suggestKeys(key); len(similar) > 0 {
		details["did_you_mean"] = similar
	}
	return createSmartErrorResponse(operation, err, details)
}

// requireKey validates a key path parameter
func requireKey(key string) error {
	if key == "" {
		return errors.New("key is required")
	}
	_, err := keypath.Parse(key)
	return err
}

func (s *Server) handleSearchTranslation(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p SearchTranslationParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolSearchTranslation, err)
	}
	warnings := unknownFieldWarnings(unknown)

	query := strings.TrimSpace(p.Query)
	if query == "" {
		return createSmartErrorResponse(ToolSearchTranslation, errors.New("query is required"), nil)
	}
	scope, ok := index.ParseScope(p.Scope)
	if !ok {
		return createSmartErrorResponse(ToolSearchTranslation, fmt.Errorf("invalid scope %q", p.Scope), nil)
	}
	limit := p.Max
	if limit <= 0 {
		limit = SearchDefaultMax
	}
	if limit > SearchHardCap {
		warnings = append(warnings, fmt.Sprintf("max reduced from %d to %d", limit, SearchHardCap))
		limit = SearchHardCap
	}

	results := s.mgr.Index().Search(query, index.SearchOptions{
		Scope:         scope,
		Languages:     p.Languages,
		MaxResults:    limit,
		CaseSensitive: p.CaseSensitive,
	})
	for i := range results {
		results[i].Translations = s.relativize(results[i].Translations)
	}

	resp := SearchTranslationResponse{
		Query:   query,
		Scope:   scope,
		Total:   len(results),
		Results: results,
	}
	if len(results) == 0 {
		resp.Suggestions = s.suggestKeys(query)
	}
	return createResponseWithWarnings(resp, warnings)
}

func (s *Server) handleGetTranslation(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p KeyParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolGetTranslation, err)
	}
	if err := requireKey(p.Key); err != nil {
		return createSmartErrorResponse(ToolGetTranslation, err, nil)
	}

	ix := s.mgr.Index()
	if p.Language != "" {
		entry, ok := ix.Get(p.Key, p.Language)
		if !ok {
			return s.keyNotFound(ToolGetTranslation, p.Key, p.Language)
		}
		entry.SourceFile = s.relPath(entry.SourceFile)
		return createResponseWithWarnings(map[string]interface{}{
			"key":      p.Key,
			"language": p.Language,
			"entry":    entry,
		}, unknownFieldWarnings(unknown))
	}

	tr, ok := ix.GetAll(p.Key)
	if !ok {
		return s.keyNotFound(ToolGetTranslation, p.Key, "")
	}
	return createResponseWithWarnings(map[string]interface{}{
		"key":          p.Key,
		"translations": s.relativize(tr),
	}, unknownFieldWarnings(unknown))
}

func (s *Server) handleGetTranslationContext(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p TranslationContextParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolGetTranslationContext, err)
	}
	if err := requireKey(p.Key); err != nil {
		return createSmartErrorResponse(ToolGetTranslationContext, err, nil)
	}
	depth := ContextDefaultDepth
	if p.Depth != nil {
		depth = *p.Depth
	}

	kc, ok := s.mgr.Index().GetContext(p.Key, index.ContextOptions{Depth: depth, Languages: p.Languages})
	if !ok {
		return s.keyNotFound(ToolGetTranslationContext, p.Key, "")
	}
	kc.Translations = s.relativize(kc.Translations)
	s.relativizeNode(kc.Parent)
	for i := range kc.Children {
		s.relativizeNode(&kc.Children[i])
	}
	for i := range kc.Siblings {
		s.relativizeNode(&kc.Siblings[i])
	}
	return createResponseWithWarnings(kc, unknownFieldWarnings(unknown))
}

func (s *Server) handleUpdateTranslation(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p UpdateTranslationParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolUpdateTranslation, err)
	}
	if err := requireKey(p.Key); err != nil {
		return createSmartErrorResponse(ToolUpdateTranslation, err, nil)
	}
	if p.Language == "" {
		return createSmartErrorResponse(ToolUpdateTranslation, errors.New("language is required"), nil)
	}
	if p.Value == nil {
		return createSmartErrorResponse(ToolUpdateTranslation, errors.New("value is required"), nil)
	}

	ix := s.mgr.Index()
	prev, existed := ix.Get(p.Key, p.Language)

	// Keep the entry in the file it was loaded from
	var meta *types.EntryMetadata
	target := s.mgr.FilePathFor(p.Language)
	if existed && prev.SourceFile != "" {
		meta = &types.EntryMetadata{SourceFile: prev.SourceFile, Line: prev.Line, Column: prev.Column}
		target = prev.SourceFile
	}

	if err := ix.Set(p.Key, p.Language, *p.Value, meta); err != nil {
		return createSmartErrorResponse(ToolUpdateTranslation, err, map[string]interface{}{
			"key":      p.Key,
			"language": p.Language,
		})
	}

	resp := map[string]interface{}{
		"success":  true,
		"key":      p.Key,
		"language": p.Language,
		"value":    *p.Value,
		"created":  !existed,
		"file":     s.relPath(target),
		"autoSync": s.mgr.AutoSync().Running(),
	}
	if existed {
		resp["previous"] = prev.Value
	}
	return createResponseWithWarnings(resp, unknownFieldWarnings(unknown))
}

func (s *Server) handleDeleteTranslation(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p KeyParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolDeleteTranslation, err)
	}
	if err := requireKey(p.Key); err != nil {
		return createSmartErrorResponse(ToolDeleteTranslation, err, nil)
	}

	if !s.mgr.Index().Delete(p.Key, p.Language) {
		return s.keyNotFound(ToolDeleteTranslation, p.Key, p.Language)
	}
	resp := map[string]interface{}{
		"success": true,
		"key":     p.Key,
		"deleted": true,
	}
	if p.Language != "" {
		resp["language"] = p.Language
	}
	return createResponseWithWarnings(resp, unknownFieldWarnings(unknown))
}

func (s *Server) handleBatchUpdate(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p BatchUpdateParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolBatchUpdate, err)
	}
	if len(p.Operations) == 0 {
		return createSmartErrorResponse(ToolBatchUpdate, errors.New("operations is required"), nil)
	}

	res := s.mgr.Index().BatchUpdate(p.Operations)
	if !res.Success {
		return createSmartErrorResponse(ToolBatchUpdate,
			fmt.Errorf("batch rejected: %s", strings.Join(res.Errors, "; ")),
			map[string]interface{}{"errors": res.Errors, "operations": len(p.Operations)})
	}
	return createResponseWithWarnings(res, unknownFieldWarnings(unknown))
}

func (s *Server) handleValidateStructure(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p ValidateStructureParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolValidateStructure, err)
	}
	base := p.BaseLanguage
	if base == "" {
		base = s.cfg.Translations.BaseLanguage
	}

	res, err := s.mgr.Index().ValidateStructure(index.ValidationOptions{BaseLanguage: base, AutoFix: p.AutoFix})
	if err != nil {
		return createSmartErrorResponse(ToolValidateStructure, err, map[string]interface{}{
			"base_language": base,
			"languages":     s.mgr.Index().Languages(),
		})
	}
	return createResponseWithWarnings(res, unknownFieldWarnings(unknown))
}

func (s *Server) handleAnalyzeUsage(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p AnalyzeUsageParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolAnalyzeUsage, err)
	}

	report := s.mgr.Index().AnalyzeUsage(index.UsageOptions{CheckDuplicates: p.CheckDuplicates})
	if p.Language != "" {
		langs := report.Languages[:0]
		for _, l := range report.Languages {
			if l.Language == p.Language {
				langs = append(langs, l)
			}
		}
		report.Languages = langs
		dups := report.Duplicates[:0]
		for _, d := range report.Duplicates {
			if d.Language == p.Language {
				dups = append(dups, d)
			}
		}
		report.Duplicates = dups
	}
	return createResponseWithWarnings(report, unknownFieldWarnings(unknown))
}

func (s *Server) handleListLanguages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p NoParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolListLanguages, err)
	}

	ix := s.mgr.Index()
	counts := ix.Stats().Languages
	files := make(map[string][]string)
	for _, sf := range ix.SourceFiles() {
		files[sf.Language] = append(files[sf.Language], s.relPath(sf.Path))
	}

	base := s.cfg.Translations.BaseLanguage
	langs := ix.Languages()
	infos := make([]LanguageInfo, 0, len(langs))
	for _, code := range langs {
		infos = append(infos, LanguageInfo{
			Code:   code,
			Keys:   counts[code],
			IsBase: code == base,
			File:   s.relPath(s.mgr.FilePathFor(code)),
			Files:  files[code],
		})
	}
	return createResponseWithWarnings(map[string]interface{}{
		"baseLanguage": base,
		"count":        len(infos),
		"languages":    infos,
	}, unknownFieldWarnings(unknown))
}

func (s *Server) handleGetStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p NoParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolGetStats, err)
	}

	resp := map[string]interface{}{
		"stats":   s.mgr.Stats(),
		"version": version.Info(),
	}
	if initErr := s.mgr.InitError(); initErr != nil {
		resp["initError"] = initErr.Error()
	}
	return createResponseWithWarnings(resp, unknownFieldWarnings(unknown))
}

func (s *Server) handleRefreshIndex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p NoParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolRefreshIndex, err)
	}

	res, err := s.mgr.Refresh(ctx)
	if err != nil {
		return createSmartErrorResponse(ToolRefreshIndex, err, map[string]interface{}{
			"dir": s.mgr.TranslationsDir(),
		})
	}
	resp := map[string]interface{}{
		"success":    true,
		"files":      res.Files,
		"keys":       res.Keys,
		"removed":    res.Removed,
		"shared":     res.Shared,
		"durationMs": res.Duration.Milliseconds(),
	}
	if len(res.Errors) > 0 {
		resp["fileErrors"] = errorStrings(res.Errors)
	}
	return createResponseWithWarnings(resp, unknownFieldWarnings(unknown))
}

func (s *Server) handleSyncNow(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p NoParams
	unknown, err := decodeParams(arguments(req), &p)
	if err != nil {
		return invalidParams(ToolSyncNow, err)
	}

	report := s.mgr.AutoSync().SyncNow(ctx)
	for i := range report.Files {
		report.Files[i].Path = s.relPath(report.Files[i].Path)
	}
	resp := map[string]interface{}{
		"success":    report.Success(),
		"files":      report.Files,
		"written":    report.Written,
		"skipped":    report.Skipped,
		"durationMs": report.Duration.Milliseconds(),
	}
	if len(report.Errors) > 0 {
		resp["errors"] = errorStrings(report.Errors)
	}
	if !report.Success() {
		return createFailedJSONResponse(resp)
	}
	return createResponseWithWarnings(resp, unknownFieldWarnings(unknown))
}

func errorStrings(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p InfoParams
	if _, err := decodeParams(arguments(req), &p); err != nil {
		return createSmartErrorResponse(ToolInfo, fmt.Errorf("invalid parameters: %w", err), map[string]interface{}{
			"help": `Use: {"tool": "search_translation"} or {"tool": "version"}`,
		})
	}

	tool := strings.ToLower(strings.TrimSpace(p.Tool))
	switch tool {
	case "":
		overview := make(map[string]string, len(s.tools))
		for name, t := range s.tools {
			overview[name] = t.Description
		}
		return createJSONResponse(map[string]interface{}{
			"server":       ServerName,
			"version":      version.Version,
			"translations": s.mgr.TranslationsDir(),
			"tools":        overview,
			"usage":        `Call info with {"tool": "<name>"} for parameters`,
		})

	case "version":
		return createJSONResponse(map[string]interface{}{
			"server_name":    ServerName,
			"server_version": version.FullInfo(),
			"build_id":       version.BuildID(),
			"mcp_version":    MCPProtocolVersion,
			"go_version":     runtime.Version(),
			"platform":       runtime.GOOS + "/" + runtime.GOARCH,
			"started_at":     s.mgr.Stats().StartedAt.Format(time.RFC3339),
		})
	}

	t, ok := s.tools[tool]
	if !ok {
		return createSmartErrorResponse(ToolInfo, fmt.Errorf("unknown tool %q", p.Tool), map[string]interface{}{
			"available_tools": s.toolNames(),
		})
	}
	params := make(map[string]string)
	if schema, ok := any(t.InputSchema).(*jsonschema.Schema); ok && schema != nil {
		required := make(map[string]bool)
		for _, r := range schema.Required {
			required[r] = true
		}
		for name, prop := range schema.Properties {
			desc := prop.Description
			if required[name] {
				desc = "REQUIRED: " + desc
			}
			params[name] = desc
		}
	}
	return createJSONResponse(map[string]interface{}{
		"name":        t.Name,
		"description": t.Description,
		"help":        getOperationHelp(t.Name),
		"parameters":  params,
		"related":     getRelatedOperations(t.Name),
	})
}
