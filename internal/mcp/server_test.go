package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	t.Setenv("FAILMEM_EMBEDDING_PROVIDER", "local")

	server, err := NewServer(filepath.Join(t.TempDir(), "failmem.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.store.Close() })
	return server
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &decoded))
	return decoded
}

func TestServer_Initialization(t *testing.T) {
	server := newTestServer(t)
	assert.NotNil(t, server.mcp)
	assert.NotNil(t, server.store)
	assert.NotNil(t, server.recorder)
	assert.NotNil(t, server.retriever)
}

func TestHandleCaptureError(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	t.Run("captures and classifies", func(t *testing.T) {
		result, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
			"message": "dial tcp: connection refused",
			"project": "api",
		}))
		require.NoError(t, err)

		resp := resultJSON(t, result)
		assert.Equal(t, "network", resp["category"])
		assert.Equal(t, true, resp["new"])
		assert.NotEmpty(t, resp["fingerprint"])
	})

	t.Run("duplicate increments occurrences", func(t *testing.T) {
		result, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
			"message": "dial tcp: connection refused",
		}))
		require.NoError(t, err)

		resp := resultJSON(t, result)
		assert.Equal(t, float64(2), resp["occurrences"])
		assert.Equal(t, false, resp["new"])
	})

	t.Run("missing message", func(t *testing.T) {
		_, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{}))
		require.Error(t, err)

		mcpErr, ok := err.(*MCPError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})

	t.Run("invalid severity", func(t *testing.T) {
		_, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
			"message":  "boom",
			"severity": "urgent",
		}))
		require.Error(t, err)

		mcpErr, ok := err.(*MCPError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
	})
}

func TestHandleSolutionLifecycle(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	captured, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
		"message": "postgres deadlock detected",
	}))
	require.NoError(t, err)
	errorID := resultJSON(t, captured)["error_id"].(float64)

	t.Run("capture solution", func(t *testing.T) {
		result, err := server.handleCaptureSolution(ctx, toolRequest(map[string]interface{}{
			"error_id": errorID,
			"content":  "retry the transaction",
			"source":   "agent",
		}))
		require.NoError(t, err)

		resp := resultJSON(t, result)
		assert.Equal(t, errorID, resp["error_id"])
		assert.Equal(t, "agent", resp["source"])

		t.Run("report outcome", func(t *testing.T) {
			outcome, err := server.handleReportOutcome(ctx, toolRequest(map[string]interface{}{
				"solution_id": resp["solution_id"],
				"success":     true,
			}))
			require.NoError(t, err)

			outcomeResp := resultJSON(t, outcome)
			assert.Equal(t, float64(1), outcomeResp["success_count"])
			assert.Equal(t, float64(1), outcomeResp["success_rate"])
		})
	})

	t.Run("solution for missing error", func(t *testing.T) {
		_, err := server.handleCaptureSolution(ctx, toolRequest(map[string]interface{}{
			"error_id": float64(99999),
			"content":  "irrelevant",
		}))
		require.Error(t, err)

		mcpErr, ok := err.(*MCPError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeNotFound, mcpErr.Code)
	})

	t.Run("outcome for missing solution", func(t *testing.T) {
		_, err := server.handleReportOutcome(ctx, toolRequest(map[string]interface{}{
			"solution_id": float64(99999),
			"success":     false,
		}))
		require.Error(t, err)

		mcpErr, ok := err.(*MCPError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeNotFound, mcpErr.Code)
	})
}

func TestHandleFindSimilar(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
		"message": "timeout connecting to database server",
	}))
	require.NoError(t, err)

	t.Run("finds matches", func(t *testing.T) {
		result, err := server.handleFindSimilar(ctx, toolRequest(map[string]interface{}{
			"query": "timeout connecting to database server",
		}))
		require.NoError(t, err)

		resp := resultJSON(t, result)
		assert.GreaterOrEqual(t, resp["total"].(float64), float64(1))

		matches := resp["matches"].([]interface{})
		first := matches[0].(map[string]interface{})
		assert.Equal(t, "exact", first["match_kind"])
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := server.handleFindSimilar(ctx, toolRequest(map[string]interface{}{}))
		require.Error(t, err)

		mcpErr, ok := err.(*MCPError)
		require.True(t, ok)
		assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := server.handleFindSimilar(ctx, toolRequest(map[string]interface{}{
			"query": "anything",
			"limit": float64(500),
		}))
		require.Error(t, err)
	})
}

func TestHandleFindByTags(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
		"message": "redis cache eviction storm",
	}))
	require.NoError(t, err)

	result, err := server.handleFindByTags(ctx, toolRequest(map[string]interface{}{
		"tags": []interface{}{"redis"},
	}))
	require.NoError(t, err)

	resp := resultJSON(t, result)
	assert.Equal(t, float64(1), resp["total"])

	t.Run("missing tags", func(t *testing.T) {
		_, err := server.handleFindByTags(ctx, toolRequest(map[string]interface{}{}))
		require.Error(t, err)
	})
}

func TestHandleGetRelevantContext(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
		"message": "timeout connecting to database server",
	}))
	require.NoError(t, err)

	result, err := server.handleGetRelevantContext(ctx, toolRequest(map[string]interface{}{
		"task_description": "add a database migration",
		"recent_error":     "timeout connecting to database host",
	}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Relevant prior errors and their fixes:")

	t.Run("missing description", func(t *testing.T) {
		_, err := server.handleGetRelevantContext(ctx, toolRequest(map[string]interface{}{}))
		require.Error(t, err)
	})
}

func TestHandleGetStats(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	_, err := server.handleCaptureError(ctx, toolRequest(map[string]interface{}{
		"message": "boom",
	}))
	require.NoError(t, err)

	result, err := server.handleGetStats(ctx, mcp.CallToolRequest{})
	require.NoError(t, err)

	resp := resultJSON(t, result)
	assert.Equal(t, float64(1), resp["total_errors"])
	assert.NotNil(t, resp["database_size_mb"])
}
