// Package redirect resolves grounding redirect links embedded in research
// output into the destination URLs they point at.
//
// Research output is an opaque text blob (JSON-like or prose). Links are
// found by pattern match over the raw text, deduplicated, resolved
// concurrently with one HEAD request each, and substituted back into the
// text. A link that cannot be resolved is left as it was: a failed
// resolution never fails the whole pass.
//
//	r := redirect.NewResolver(redirect.WithLogger(logger))
//	result := r.Process(ctx, text)
//	// result.Original is text, result.Resolved has destinations substituted.
package redirect
