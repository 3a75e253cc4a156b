package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/failmem-mcp/internal/recorder"
	"github.com/dshills/failmem-mcp/internal/retriever"
	"github.com/dshills/failmem-mcp/internal/storage"
	"github.com/dshills/failmem-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound      = -32001 // Referenced error or solution does not exist
	ErrorCodeEmptyQuery    = -32002 // Query parameter is empty
)

// handleCaptureError handles the capture_error tool invocation
func (s *Server) handleCaptureError(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	message, ok := args["message"].(string)
	if !ok || message == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "message parameter is required", map[string]interface{}{
			"param":  "message",
			"reason": "missing or empty",
		})
	}

	input := recorder.ErrorInput{
		Message:    message,
		Category:   getStringDefault(args, "category", ""),
		Severity:   getStringDefault(args, "severity", ""),
		StackTrace: getStringDefault(args, "stack_trace", ""),
		FilePath:   getStringDefault(args, "file_path", ""),
		Project:    getStringDefault(args, "project", ""),
		Tags:       getStringSlice(args, "tags"),
	}

	rec, err := s.recorder.CaptureError(ctx, input)
	if err != nil {
		if errors.Is(err, recorder.ErrInvalidSeverity) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid severity", map[string]interface{}{
				"param": "severity",
				"value": input.Severity,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "capture failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.retriever.InvalidateCache()

	response := map[string]interface{}{
		"error_id":    rec.ID,
		"fingerprint": rec.Fingerprint,
		"category":    rec.Category,
		"severity":    rec.Severity,
		"occurrences": rec.Occurrences,
		"first_seen":  rec.FirstSeen.Format(time.RFC3339),
		"last_seen":   rec.LastSeen.Format(time.RFC3339),
		"tags":        tagNames(rec.Tags),
		"new":         rec.Occurrences == 1,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCaptureSolution handles the capture_solution tool invocation
func (s *Server) handleCaptureSolution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	errorID := getInt64Default(args, "error_id", 0)
	if errorID <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "error_id parameter is required", map[string]interface{}{
			"param":  "error_id",
			"reason": "missing or not a positive integer",
		})
	}
	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	sol, err := s.recorder.CaptureSolution(ctx, recorder.SolutionInput{
		ErrorID: errorID,
		Content: content,
		CodeFix: getStringDefault(args, "code_fix", ""),
		Source:  getStringDefault(args, "source", ""),
		Project: getStringDefault(args, "project", ""),
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotFound, "error not found", map[string]interface{}{
				"error_id": errorID,
			})
		}
		if errors.Is(err, recorder.ErrInvalidSource) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid source", map[string]interface{}{
				"param": "source",
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "capture failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.retriever.InvalidateCache()

	response := map[string]interface{}{
		"solution_id": sol.ID,
		"error_id":    sol.ErrorID,
		"source":      sol.Source,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReportOutcome handles the report_outcome tool invocation
func (s *Server) handleReportOutcome(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	solutionID := getInt64Default(args, "solution_id", 0)
	if solutionID <= 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "solution_id parameter is required", map[string]interface{}{
			"param":  "solution_id",
			"reason": "missing or not a positive integer",
		})
	}
	success, ok := args["success"].(bool)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "success parameter is required", map[string]interface{}{
			"param":  "success",
			"reason": "missing or not a boolean",
		})
	}

	sol, err := s.recorder.ReportOutcome(ctx, solutionID, success)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeNotFound, "solution not found", map[string]interface{}{
				"solution_id": solutionID,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "outcome recording failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	s.retriever.InvalidateCache()

	response := map[string]interface{}{
		"solution_id":   sol.ID,
		"success_count": sol.SuccessCount,
		"failure_count": sol.FailureCount,
		"attempts":      sol.Attempts(),
		"success_rate":  sol.SuccessRate(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindSimilar handles the find_similar tool invocation
func (s *Server) handleFindSimilar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", retriever.DefaultLimit)
	if limit < 1 || limit > retriever.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	matches, err := s.retriever.FindSimilar(ctx, query, retriever.SearchOptions{
		Limit:    limit,
		Project:  getStringDefault(args, "project", ""),
		Category: getStringDefault(args, "category", ""),
		Severity: getStringDefault(args, "severity", ""),
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"total":   len(matches),
		"matches": formatMatches(matches, true),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindByTags handles the find_by_tags tool invocation
func (s *Server) handleFindByTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	tags := getStringSlice(args, "tags")
	if len(tags) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "tags parameter is required", map[string]interface{}{
			"param":  "tags",
			"reason": "missing or empty",
		})
	}

	matches, err := s.retriever.FindByTags(ctx, tags)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"total":   len(matches),
		"matches": formatMatches(matches, false),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetRelevantContext handles the get_relevant_context tool invocation
func (s *Server) handleGetRelevantContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	description, ok := args["task_description"].(string)
	if !ok || description == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "task_description parameter is required", map[string]interface{}{
			"param":  "task_description",
			"reason": "missing or empty",
		})
	}

	relevant, err := s.retriever.GetRelevant(ctx, types.TaskContext{
		Description: description,
		RecentError: getStringDefault(args, "recent_error", ""),
		Project:     getStringDefault(args, "project", ""),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "context retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(relevant.Formatted), nil
}

// handleGetStats handles the get_stats tool invocation
func (s *Server) handleGetStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	categories := make([]map[string]interface{}, len(stats.TopCategories))
	for i, cc := range stats.TopCategories {
		categories[i] = map[string]interface{}{
			"category": cc.Category,
			"count":    cc.Count,
		}
	}

	response := map[string]interface{}{
		"total_errors":     stats.TotalErrors,
		"total_solutions":  stats.TotalSolutions,
		"total_tags":       stats.TotalTags,
		"total_embeddings": stats.TotalEmbeddings,
		"top_categories":   categories,
		"avg_success_rate": stats.AvgSuccessRate,
		"project_counts":   stats.ProjectCounts,
		"database_size_mb": fmt.Sprintf("%.2f", stats.SizeMB),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// formatMatches projects retrieval results into the wire shape. Scores
// are only meaningful for similarity search, not tag lookup.
func formatMatches(matches []types.Match, withScore bool) []map[string]interface{} {
	out := make([]map[string]interface{}, len(matches))
	for i, m := range matches {
		rec := m.Error
		solutions := make([]map[string]interface{}, len(m.Solutions))
		for j, sol := range m.Solutions {
			entry := map[string]interface{}{
				"solution_id":  sol.ID,
				"content":      sol.Content,
				"source":       sol.Source,
				"attempts":     sol.Attempts(),
				"success_rate": sol.SuccessRate(),
			}
			if sol.CodeFix != nil {
				entry["code_fix"] = *sol.CodeFix
			}
			solutions[j] = entry
		}

		entry := map[string]interface{}{
			"error_id":    rec.ID,
			"message":     rec.Message,
			"category":    rec.Category,
			"severity":    rec.Severity,
			"project":     rec.Project,
			"occurrences": rec.Occurrences,
			"last_seen":   rec.LastSeen.Format(time.RFC3339),
			"tags":        tagNames(rec.Tags),
			"solutions":   solutions,
		}
		if withScore {
			entry["score"] = m.Score
			entry["match_kind"] = string(m.Kind)
		}
		out[i] = entry
	}
	return out
}

func tagNames(tags []storage.Tag) []string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return names
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getInt64Default extracts an integer ID parameter with a default value
func getInt64Default(args map[string]interface{}, key string, defaultValue int64) int64 {
	if val, ok := args[key].(float64); ok {
		return int64(val)
	}
	if val, ok := args[key].(int64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return int64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
