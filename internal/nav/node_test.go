package nav

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCellOf_TruncatesBySpacing(t *testing.T) {
	c := CellOf(mgl32.Vec3{449, 12, 301}, 150)
	if c != (Cell{X: 2, Z: 2}) {
		t.Fatalf("expected (2,2) got %+v", c)
	}
}

func TestCell_WorldRoundTrip(t *testing.T) {
	c := Cell{X: 7, Z: 3}
	pos := c.World(4.5, 150)
	if pos != (mgl32.Vec3{1050, 4.5, 450}) {
		t.Fatalf("unexpected world position %v", pos)
	}
	if CellOf(pos, 150) != c {
		t.Fatalf("cell did not survive round trip")
	}
}

func TestCell_DistanceTruncated(t *testing.T) {
	cases := []struct {
		a, b Cell
		want int
	}{
		{Cell{0, 0}, Cell{0, 0}, 0},
		{Cell{0, 0}, Cell{1, 0}, 1},
		{Cell{0, 0}, Cell{1, 1}, 1}, // sqrt(2) truncates to 1
		{Cell{0, 0}, Cell{3, 4}, 5},
		{Cell{2, 2}, Cell{0, 5}, 3}, // sqrt(13)
	}
	for _, tc := range cases {
		if got := tc.a.Distance(tc.b); got != tc.want {
			t.Fatalf("Distance(%v,%v)=%d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCell_HeuristicFormula(t *testing.T) {
	cases := []struct {
		a, b Cell
		want int
	}{
		{Cell{10, 10}, Cell{10, 10}, 0},
		{Cell{10, 11}, Cell{10, 15}, 7},  // 1.75*4
		{Cell{10, 9}, Cell{10, 15}, 10},  // 1.75*6 = 10.5
		{Cell{11, 11}, Cell{10, 15}, 22}, // 1.75*5 + (17-3.5)*1
		{Cell{11, 14}, Cell{10, 15}, 2},  // 1.75*2 + (2-3.5)*1
	}
	for _, tc := range cases {
		if got := tc.a.Heuristic(tc.b); got != tc.want {
			t.Fatalf("Heuristic(%v,%v)=%d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestHeuristic_CanOverestimate(t *testing.T) {
	// Diagonal steps cost 1, so (0,0)->(3,3) really costs 3.
	a, b := Cell{0, 0}, Cell{3, 3}
	if h := a.Heuristic(b); h <= 3 {
		t.Fatalf("expected the estimate to exceed the true cost, got %d", h)
	}
}

func TestNode_RoleUpdatesDisplayTagOnly(t *testing.T) {
	pos := mgl32.Vec3{150, 2, 300}
	n := NewNode(pos, RoleVertex)
	if n.DisplayTag() != (color.RGBA{A: 255}) {
		t.Fatalf("vertex should be black, got %v", n.DisplayTag())
	}
	n.SetRole(RoleClosed)
	if n.Role() != RoleClosed {
		t.Fatalf("role not updated")
	}
	if n.DisplayTag() != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("closed should be red, got %v", n.DisplayTag())
	}
	if n.Position() != pos {
		t.Fatalf("position must not change with role")
	}
}

func TestNode_EqualByPosition(t *testing.T) {
	a := NewNode(mgl32.Vec3{150, 0, 150}, RoleWaypoint)
	b := NewNode(mgl32.Vec3{150, 0, 150}, RoleOpen)
	c := NewNode(mgl32.Vec3{150, 1, 150}, RoleWaypoint)
	if !a.Equal(b) {
		t.Fatal("same position should be equal regardless of role")
	}
	if a.Equal(c) {
		t.Fatal("different height should not be equal")
	}
	var nilNode *Node
	if a.Equal(nilNode) {
		t.Fatal("non-nil node should not equal nil")
	}
}

func TestNode_DistanceHelpers(t *testing.T) {
	a := NewNode(mgl32.Vec3{0, 0, 0}, RoleWaypoint)
	b := NewNode(mgl32.Vec3{450, 0, 600}, RoleWaypoint)
	if d := a.DistanceBetween(b, 150); d != 5 {
		t.Fatalf("DistanceBetween=%d, want 5", d)
	}
	if d := a.DistanceTo(mgl32.Vec3{450, 0, 600}, 150); d != 5 {
		t.Fatalf("DistanceTo=%d, want 5", d)
	}
	if d := a.DistanceBetween(b, 1); d != 750 {
		t.Fatalf("DistanceBetween spacing 1=%d, want 750", d)
	}
}

func TestRole_String(t *testing.T) {
	if RolePath.String() != "path" || Role(99).String() != "unknown" {
		t.Fatal("unexpected role names")
	}
}
