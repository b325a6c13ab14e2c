// Package research produces the raw agent text that redirect resolution
// post-processes.
//
// One Task is built per (proposition, target) pair from instruction files on
// disk. A Runner sends every task to a Generator in parallel and joins the
// answers in task order. GeminiGenerator answers tasks with the Gemini API
// and its Google Search tool, which is where grounding redirect links come
// from.
package research
