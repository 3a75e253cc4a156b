// Package mcp implements the Model Context Protocol server exposing the
// failure memory to AI coding agents.
//
// # Tools
//
// The server registers seven tools:
//
//   - capture_error: record an error report; duplicates increment the
//     stored record's occurrence count
//   - capture_solution: record a proposed fix for an existing error
//   - report_outcome: record whether an applied solution worked
//   - find_similar: multi-strategy similarity search with solutions
//   - find_by_tags: tag-membership lookup
//   - get_relevant_context: assemble a bounded context block for an
//     upcoming task
//   - get_stats: aggregate store statistics
//
// # Transport
//
// The server speaks MCP over stdio. Stdout carries the protocol; all
// logging goes to stderr.
//
// # Errors
//
// Tool failures surface as MCPError values with JSON-RPC codes:
// -32602 for invalid parameters, -32603 for internal failures, and
// domain codes for missing references and empty queries. The error Data
// field names the offending parameter where applicable.
//
// # Configuration
//
// FAILMEM_DB_PATH overrides the database location (default
// ~/.failmem/failmem.db). Embedding provider selection is documented in
// the embedder package.
package mcp
