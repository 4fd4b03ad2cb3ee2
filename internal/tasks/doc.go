// Package tasks runs units of work with lifecycle events and progress reporting.
//
// # State Machine
//
// Every [Task] passes through Created → InProgress → Finished | Failed when driven by [Execute].
// Each transition is published as an [Event] unless the task embeds a silent [Base].
//
// # Runners
//
// A [Runner] owns a FIFO [Queue] of tasks and drains it with [Runner.Process]:
//
//  1. Sequential (default): one task at a time, publishing [Progress] after each completion
//  2. Parallel: chunks of [DefaultChunkSize] tasks run concurrently with errgroup
//
// [Options] control whether the first failure is returned (PropagateError) and whether pending tasks
// are dropped after a failure (AutoWipeQueueOnFail). Calling Process while a run is in flight is a no-op.
//
// # Progress Reporting
//
// A [Bus] carries events, runner progress and [ProgressUpdate] values on buffered channels.
// Sends use select with default so a slow consumer never stalls a download.
// Child buses forward to their parent; isolated buses keep nested work out of the parent's stream.
//
// [Frontier] expresses recursive expansion (dependency walks, installer processors) as a loop over
// pending keys with a visited set.
package tasks
