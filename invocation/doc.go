// Package invocation adapts an agent runtime to the request/response and
// streaming shapes served over HTTP.
//
// An Adapter turns a Request into core.Options from the immutable agent
// profile, starts the runtime and folds its messages. Query returns a single
// aggregated Result; Stream projects the same messages onto an ordered
// sequence of Events ending in exactly one complete or error event. Both paths
// share one fold: assistant text is joined with newlines (FallbackResponse when
// there is none) and consumption stops at the first ResultMessage.
package invocation
