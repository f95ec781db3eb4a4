package barrier

import (
	"container/list"
	"time"
)

// epochState is the lifecycle state of a single EpochNode.
type epochState int

const (
	stateInFlight epochState = iota
	stateComplete
	stateFailed
)

// epochNode is the states and messages of one in-flight barrier. It's
// created on injection, transitions at most once, and is removed from the
// pipeline when it's the head and has successfully committed, or when the
// pipeline drains after a failure.
type epochNode struct {
	cmdCtx       *CommandContext
	state        epochState
	failure      error
	responses    []BarrierCompleteResponse
	notifiers    []*Notifier
	latencyTimer time.Time
}

// pipeline is the ordered deque of epochNode, one per in-flight barrier,
// plus the two flags that gate admission of further injections. It's owned
// exclusively by the Coordinator's main loop; nothing else may mutate it.
//
// It solves the same "only the head may proceed, later completions wait"
// problem that broker/append_fsm.go's pln.barrier()/waitFor/closeAfter
// head-of-line mechanism solves for append acknowledgement ordering. Here
// it's plain FIFO order of a deque rather than chained channels, since
// unlike append's streaming acks, barrier completions simply queue until
// the head is ready.
type pipeline struct {
	nodes            *list.List // of *epochNode, in strictly ascending CurrEpoch order
	isRecovering     bool
	isBuildingActors bool
	maxInFlight      int
}

func newPipeline(maxInFlight int) *pipeline {
	return &pipeline{nodes: list.New(), maxInFlight: maxInFlight}
}

// canInject reports whether the Coordinator may inject a further barrier,
// per the admission rule: not recovering, not mid actor-topology-change, and
// under the in-flight depth cap.
func (p *pipeline) canInject() bool {
	return !p.isRecovering && !p.isBuildingActors && p.inFlightCount() < p.maxInFlight
}

// inFlightCount returns the number of nodes still awaiting collection.
func (p *pipeline) inFlightCount() int {
	var n int
	for e := p.nodes.Front(); e != nil; e = e.Next() {
		if e.Value.(*epochNode).state == stateInFlight {
			n++
		}
	}
	return n
}

// depth returns the total number of nodes in the pipeline, in flight or not.
func (p *pipeline) depth() int { return p.nodes.Len() }

// pushBack admits a newly-injected epoch onto the tail of the pipeline.
func (p *pipeline) pushBack(node *epochNode) {
	p.nodes.PushBack(node)
	if node.cmdCtx.Command.BuildsActors() {
		p.isBuildingActors = true
	}
}

// find locates the node for prevEpoch, if any is currently in the pipeline.
func (p *pipeline) find(prevEpoch Epoch) *epochNode {
	for e := p.nodes.Front(); e != nil; e = e.Next() {
		if node := e.Value.(*epochNode); node.cmdCtx.PrevEpoch == prevEpoch {
			return node
		}
	}
	return nil
}

// front returns the head node, or nil if the pipeline is empty.
func (p *pipeline) front() *epochNode {
	if e := p.nodes.Front(); e != nil {
		return e.Value.(*epochNode)
	}
	return nil
}

// popFront removes and returns the head node.
func (p *pipeline) popFront() *epochNode {
	var e = p.nodes.Front()
	if e == nil {
		return nil
	}
	var node = p.nodes.Remove(e).(*epochNode)
	if node.cmdCtx.Command.BuildsActors() {
		p.isBuildingActors = false
	}
	return node
}

// empty reports whether the pipeline holds no nodes.
func (p *pipeline) empty() bool { return p.nodes.Len() == 0 }

// back returns the tail node, or nil if the pipeline is empty.
func (p *pipeline) back() *epochNode {
	if e := p.nodes.Back(); e != nil {
		return e.Value.(*epochNode)
	}
	return nil
}

// drainAll removes and returns every node in the pipeline, head first.
func (p *pipeline) drainAll() []*epochNode {
	var out = make([]*epochNode, 0, p.nodes.Len())
	for e := p.nodes.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*epochNode))
	}
	p.nodes.Init()
	p.isBuildingActors = false
	return out
}
