// Package events reports pipeline progress.
//
// The pipeline calls a ProgressFunc at every stage transition. An Emitter
// fans each update out to any number of registered ProgressHandlers, such
// as the LogHandler that writes updates to the structured logger.
package events
