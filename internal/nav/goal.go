package nav

import "github.com/go-gl/mathgl/mgl32"

// GoalSelector picks the closest uncollected target to the agent.
// It caches nothing; targets can be collected between calls.
type GoalSelector struct {
	targets TargetSource
	terrain Terrain
	spacing int
}

// NewGoalSelector creates a selector over a live target collection.
func NewGoalSelector(targets TargetSource, terrain Terrain, spacing int) *GoalSelector {
	if spacing <= 0 {
		spacing = 1
	}
	return &GoalSelector{targets: targets, terrain: terrain, spacing: spacing}
}

// ClosestTarget returns the target whose cell is nearest to the agent's
// cell, by truncated grid distance. Ties go to the first target listed.
// With radius > 0 (world units) a nearest target further away than radius
// is not returned. Returns nil when nothing qualifies.
func (g *GoalSelector) ClosestTarget(agent mgl32.Vec3, radius float32) Target {
	from := CellOf(agent, g.spacing)
	var closest Target
	smallest := -1
	for _, t := range g.targets.Targets() {
		d := from.Distance(CellOf(t.Position(), g.spacing))
		if smallest < 0 || d < smallest {
			smallest = d
			closest = t
		}
	}
	if closest == nil {
		goalLookups.WithLabelValues("empty").Inc()
		return nil
	}
	if radius > 0 && float32(smallest*g.spacing) > radius {
		goalLookups.WithLabelValues("out_of_radius").Inc()
		return nil
	}
	goalLookups.WithLabelValues("found").Inc()
	return closest
}

// ClosestNode wraps ClosestTarget into a Waypoint node on the target's
// grid cell, sitting on the terrain.
func (g *GoalSelector) ClosestNode(agent mgl32.Vec3, radius float32) *Node {
	t := g.ClosestTarget(agent, radius)
	if t == nil {
		return nil
	}
	return NodeAt(g.terrain, t.Position(), g.spacing)
}
