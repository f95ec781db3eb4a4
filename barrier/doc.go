// Package barrier implements Tideline's Global Barrier Coordinator (GBC):
// the control-plane component that drives consistent checkpoints across a
// fleet of stateful compute workers by injecting monotonically numbered
// barriers into their data-flow graphs and collecting acknowledgements.
//
// The Coordinator accepts Commands, which describe a control-plane intent
// (a periodic checkpoint, creating or dropping a materialized view,
// rescheduling actors, pausing or resuming the fleet). Each accepted Command
// is bound to an Epoch and wrapped in a CommandContext, which derives the
// Mutation to attach to the barrier and the post-collect side effects that
// must run once every worker has acknowledged it:
//
//	var gbc = barrier.NewCoordinator(opts, storage, cluster, fragment, clients, recoverer, epochs)
//	go gbc.Run(ctx)
//
//	// Fire-and-forget a checkpoint.
//	gbc.Schedule(barrier.Plain())
//
//	// Block until a CreateMaterializedView command has fully finished,
//	// including backfill completion tracked across later epochs.
//	var commit = func() error { return catalog.MarkVisible(tableID) }
//	if err := gbc.RunCommand(ctx, barrier.CreateMaterializedView(tableID, actors, commit)); err != nil {
//	    // handle err
//	}
//
// Internally, the Coordinator pipelines at most Options.MaxInFlight
// epochs concurrently: each is injected to every worker hosting actors,
// asynchronously collected, and committed to storage strictly in ascending
// epoch order once it reaches the head of the pipeline. A Command's outcome
// is reported via a Notifier, whose collected/finished/failed slots fire in
// that partial order as the epoch progresses through the pipeline; the
// Coordinator does not fire the Notifier's to_send slot.
//
// Any RPC failure fails the owning epoch, drains the pipeline of
// still-in-flight work, and hands off to an externally supplied recovery
// routine before resuming from a fresh epoch.
package barrier
