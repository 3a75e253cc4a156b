package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// captureErrorTool returns the tool definition for capture_error
func captureErrorTool() mcp.Tool {
	return mcp.Tool{
		Name:        "capture_error",
		Description: "Record an error for future reference. Duplicate reports of the same error increment its occurrence count.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The raw error message",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Error category; classified from the message when omitted",
					"enum":        []string{"syntax", "runtime", "network", "database", "auth", "config", "build"},
				},
				"severity": map[string]interface{}{
					"type":        "string",
					"description": "Error severity; suggested from the message when omitted",
					"enum":        []string{"low", "medium", "high", "critical"},
				},
				"stack_trace": map[string]interface{}{
					"type":        "string",
					"description": "Optional stack trace",
				},
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Optional source file where the error occurred",
				},
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project the error belongs to",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Extra tags beyond the automatically derived ones",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"message"},
		},
	}
}

// captureSolutionTool returns the tool definition for capture_solution
func captureSolutionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "capture_solution",
		Description: "Record a proposed fix for a previously captured error",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"error_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the error this solution fixes",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Description of the fix",
				},
				"code_fix": map[string]interface{}{
					"type":        "string",
					"description": "Optional code snippet implementing the fix",
				},
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Where the solution came from",
					"enum":        []string{"manual", "agent", "documentation", "imported"},
					"default":     "manual",
				},
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Project the solution belongs to",
				},
			},
			Required: []string{"error_id", "content"},
		},
	}
}

// reportOutcomeTool returns the tool definition for report_outcome
func reportOutcomeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "report_outcome",
		Description: "Report whether applying a solution succeeded, updating its success rate",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"solution_id": map[string]interface{}{
					"type":        "integer",
					"description": "ID of the solution that was applied",
				},
				"success": map[string]interface{}{
					"type":        "boolean",
					"description": "Whether the solution fixed the error",
				},
			},
			Required: []string{"solution_id", "success"},
		},
	}
}

// findSimilarTool returns the tool definition for find_similar
func findSimilarTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_similar",
		Description: "Find previously captured errors similar to a query, with their solutions ordered by success rate",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Error message or description to match against",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one project",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one category",
					"enum":        []string{"syntax", "runtime", "network", "database", "auth", "config", "build"},
				},
				"severity": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one severity",
					"enum":        []string{"low", "medium", "high", "critical"},
				},
			},
			Required: []string{"query"},
		},
	}
}

// findByTagsTool returns the tool definition for find_by_tags
func findByTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_by_tags",
		Description: "Find captured errors carrying any of the given tags",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Tag names to match (case-insensitive)",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"tags"},
		},
	}
}

// getRelevantContextTool returns the tool definition for get_relevant_context
func getRelevantContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_relevant_context",
		Description: "Assemble a bounded block of prior errors and proven fixes relevant to an upcoming task",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"task_description": map[string]interface{}{
					"type":        "string",
					"description": "What is about to be attempted",
				},
				"recent_error": map[string]interface{}{
					"type":        "string",
					"description": "An error just encountered, if any; takes priority over the description",
				},
				"project": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one project",
				},
			},
			Required: []string{"task_description"},
		},
	}
}

// getStatsTool returns the tool definition for get_stats
func getStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_stats",
		Description: "Report aggregate statistics for the failure memory store",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
