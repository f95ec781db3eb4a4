package barrier

// Command is a tagged variant describing the control-plane intent carried by
// a single barrier. Tag reports the variant; at most one of the payload
// pointers is non-nil, and Plain, Pause and Resume carry none.
type Command struct {
	Tag CommandTag

	createMV *createMaterializedViewCmd
	dropMV   *dropMaterializedViewCmd
	resched  *rescheduleCmd
	// Pause and Resume carry no payload.
}

// CommandTag discriminates Command variants.
type CommandTag int

const (
	// CommandPlain requests a periodic checkpoint with no mutation.
	CommandPlain CommandTag = iota
	CommandCreateMaterializedView
	CommandDropMaterializedView
	CommandReschedule
	CommandPause
	CommandResume
)

func (t CommandTag) String() string {
	switch t {
	case CommandPlain:
		return "Plain"
	case CommandCreateMaterializedView:
		return "CreateMaterializedView"
	case CommandDropMaterializedView:
		return "DropMaterializedView"
	case CommandReschedule:
		return "Reschedule"
	case CommandPause:
		return "Pause"
	case CommandResume:
		return "Resume"
	default:
		return "Unknown"
	}
}

type createMaterializedViewCmd struct {
	table  TableID
	actors []ActorID
	// commit runs once all workers have collected the barrier that carried
	// this command's mutation; it's the catalog-visible "table now exists"
	// transition.
	commit func() error
}

type dropMaterializedViewCmd struct {
	table  TableID
	actors []ActorID
	commit func() error
}

type rescheduleCmd struct {
	added   []ActorID
	dropped []ActorID
	commit  func() error
}

// Plain returns a Command carrying no mutation: a periodic checkpoint.
func Plain() Command { return Command{Tag: CommandPlain} }

// CreateMaterializedView returns a Command that splices in the actors
// building the new view's fragments, tracks their backfill progress, and
// runs commit (eg, a catalog update marking the table visible) once the
// barrier carrying the mutation has been collected.
func CreateMaterializedView(table TableID, actors []ActorID, commit func() error) Command {
	return Command{
		Tag:      CommandCreateMaterializedView,
		createMV: &createMaterializedViewCmd{table: table, actors: actors, commit: commit},
	}
}

// DropMaterializedView returns a Command that removes the view's actors
// from the data-flow graph and runs commit once collected.
func DropMaterializedView(table TableID, actors []ActorID, commit func() error) Command {
	return Command{
		Tag:    CommandDropMaterializedView,
		dropMV: &dropMaterializedViewCmd{table: table, actors: actors, commit: commit},
	}
}

// Reschedule returns a Command that adds and/or drops actors to rebalance
// the fleet, running commit (eg, a fragment-table update) once collected.
func Reschedule(added, dropped []ActorID, commit func() error) Command {
	return Command{
		Tag:     CommandReschedule,
		resched: &rescheduleCmd{added: added, dropped: dropped, commit: commit},
	}
}

// Pause returns a Command that instructs every source actor to stop
// emitting records.
func Pause() Command { return Command{Tag: CommandPause} }

// Resume returns a Command that instructs every source actor to resume
// emitting records.
func Resume() Command { return Command{Tag: CommandResume} }

// BuildsActors reports whether this Command changes the actor topology, in
// which case the Coordinator must hold off on injecting any further barrier
// until this one has committed (pipeline §3 invariant: single-writer on
// actor topology).
func (c Command) BuildsActors() bool {
	switch c.Tag {
	case CommandCreateMaterializedView, CommandDropMaterializedView, CommandReschedule:
		return true
	default:
		return false
	}
}

// creatingTable returns the TableID a CreateMaterializedView command is
// building, so fragment resolution can include its not-yet-visible actors.
func (c Command) creatingTable() (TableID, bool) {
	if c.Tag == CommandCreateMaterializedView {
		return c.createMV.table, true
	}
	return 0, false
}

// toMutation derives the barrier's Mutation from the Command. It must be
// deterministic and side-effect-free: it runs once per injected epoch and
// its result is sent verbatim to every worker.
func (c Command) toMutation() *Mutation {
	switch c.Tag {
	case CommandCreateMaterializedView:
		return &Mutation{AddActors: &AddActorsMutation{Actors: c.createMV.actors}}
	case CommandDropMaterializedView:
		return &Mutation{DropActors: &DropActorsMutation{Actors: c.dropMV.actors}}
	case CommandReschedule:
		var m = new(Mutation)
		if len(c.resched.added) > 0 {
			m.AddActors = &AddActorsMutation{Actors: c.resched.added}
		}
		if len(c.resched.dropped) > 0 {
			m.DropActors = &DropActorsMutation{Actors: c.resched.dropped}
		}
		return m
	case CommandPause:
		return &Mutation{PauseSource: &PauseMutation{}}
	case CommandResume:
		return &Mutation{ResumeSource: &ResumeMutation{}}
	default:
		return nil
	}
}

// postCollect runs side effects that require all workers to have
// acknowledged collection of this command's barrier, eg a catalog commit or
// fragment-table update. It's a no-op for commands without one.
func (c Command) postCollect() error {
	switch c.Tag {
	case CommandCreateMaterializedView:
		if c.createMV.commit != nil {
			return c.createMV.commit()
		}
	case CommandDropMaterializedView:
		if c.dropMV.commit != nil {
			return c.dropMV.commit()
		}
	case CommandReschedule:
		if c.resched.commit != nil {
			return c.resched.commit()
		}
	}
	return nil
}

// actorsToTrack enumerates actors whose post-collect progress must be
// tracked before this command's Notifier.finished fires. Only
// CreateMaterializedView has actors to track (backfill completion); every
// other variant's finished fires immediately after collected.
func (c Command) actorsToTrack() []ActorID {
	if c.Tag == CommandCreateMaterializedView {
		return c.createMV.actors
	}
	return nil
}
