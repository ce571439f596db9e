// Package affix coordinates affix requests between a view and the pipeline.
//
// A Coordinator owns the request lifecycle:
//
//	Idle → BoundsInspecting → AwaitingSizeConfirmation ⇄ BoundsInspecting
//	     → Composing → Encoding → Done | Failed | Cancelled → Idle
//
// All coordinator state is owned by a single loop goroutine; public methods
// post commands to it and return immediately. Heavy work runs on one
// long-lived worker goroutine that executes jobs strictly one at a time.
// Every job carries its request ID and a cancellable context, and results
// crossing back to the loop are plain values. Results of superseded requests
// are dropped and any file they produced is removed, so a superseded request
// never leaves an artifact behind.
//
// The view is told about transitions through the View interface. While no
// view is attached, the most recent terminal report is kept and replayed on
// the next Attach.
package affix
