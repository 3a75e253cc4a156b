// Package types provides shared result types for the FailMem MCP server.
//
// A Match is one retrieval result: an error record, the strategy that
// produced it, a similarity score, and the error's solutions ordered by
// success rate:
//
//	match := types.Match{
//	    Error:     rec,
//	    Solutions: solutions,
//	    Score:     0.87,
//	    Kind:      types.MatchSemantic,
//	}
//	best := match.BestSolution() // nil when no solutions exist
//
// TaskContext and RelevantContext are the input and output of
// task-oriented retrieval: a description of upcoming work in, a ranked
// match list plus a bounded formatted block out.
package types
