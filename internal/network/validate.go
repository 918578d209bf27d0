package network

import (
	"fmt"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/movement"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueDeadEnd       IssueKind = "dead_end"
	IssueGap           IssueKind = "gap"
	IssueReverse       IssueKind = "reverse"
	IssueFarConnection IssueKind = "far_connection"
	IssueNoExit        IssueKind = "no_exit"
	IssueUnreachable   IssueKind = "unreachable"
)

// Issue is a structural problem that does not stop a network from loading
// but changes how vehicles behave on it.
type Issue struct {
	Kind    IssueKind `json:"kind" yaml:"kind"`
	Subject string    `json:"subject" yaml:"subject"`
	Message string    `json:"message" yaml:"message"`
}

func (i Issue) String() string { return fmt.Sprintf("%s %s: %s", i.Kind, i.Subject, i.Message) }

// Validate reports dead ends, end connections that vehicles will teleport or
// fall back across, and intersections that cannot be left. radius is the
// vehicles' intersection search radius.
func (n *Network) Validate(radius float64) []Issue {
	var issues []Issue
	add := func(kind IssueKind, subject, format string, args ...any) {
		is := Issue{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}
		n.logf("validate: %s", is)
		issues = append(issues, is)
	}

	for _, seg := range n.roads {
		if len(n.Successors(seg, radius)) == 0 {
			add(IssueDeadEnd, seg.ID, "no road or intersection exit at its end")
		}
		for _, next := range seg.RoadsAtEnd() {
			switch _, kind := movement.DetectConnection(seg, next); kind {
			case movement.ConnectionReverse:
				add(IssueReverse, seg.ID, "joins the end of %s; vehicles will restart it from 0", next.ID)
			case movement.ConnectionNone:
				add(IssueGap, seg.ID, "end is %.0f from the start of %s", geom.Distance(seg.EndPoint(), next.StartPoint()), next.ID)
			}
		}
	}

	for _, in := range n.intersections {
		exits := 0
		for _, cp := range in.Connections() {
			if cp.Direction.AllowsExit() {
				exits++
			}
			if d := geom.Distance(cp.Point, in.Location()); d >= radius {
				add(IssueFarConnection, in.Name, "road %s is bound %.0f from the centre, outside the search radius %.0f", cp.Segment.ID, d, radius)
			}
		}
		if exits == 0 {
			add(IssueNoExit, in.Name, "no outgoing or bidirectional connection")
		}
	}
	return issues
}
