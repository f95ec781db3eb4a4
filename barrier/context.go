package barrier

// CommandContext is an immutable snapshot bound to a single epoch: the
// prev/curr epoch numbers, the fleet topology resolved at injection time,
// the Command, and its derived Mutation. It never changes after creation.
type CommandContext struct {
	PrevEpoch Epoch
	CurrEpoch Epoch
	Info      ActorInfo
	Command   Command
	mutation  *Mutation
}

// newCommandContext binds a Command to the epoch it will be injected at,
// deriving its Mutation once (deterministically, per Command.toMutation's
// contract) so that every worker receives an identical barrier.
func newCommandContext(prev, curr Epoch, info ActorInfo, cmd Command) *CommandContext {
	return &CommandContext{
		PrevEpoch: prev,
		CurrEpoch: curr,
		Info:      info,
		Command:   cmd,
		mutation:  cmd.toMutation(),
	}
}

// postCollect runs the Command's side effects that require every worker to
// have acknowledged collection of this epoch's barrier.
func (cc *CommandContext) postCollect() error {
	return cc.Command.postCollect()
}

// actorsToTrack enumerates the actors whose post-collect progress must be
// observed before this Command's Notifiers fire finished.
func (cc *CommandContext) actorsToTrack() []ActorID {
	return cc.Command.actorsToTrack()
}
