package agent

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const faceEpsilon = 0.05

// ErrDegenerateFacing is returned when no valid rotation exists, for
// example when the target sits on the agent or a vector is not finite.
var ErrDegenerateFacing = errors.New("degenerate facing")

// flat projects v onto the XZ plane.
func flat(v mgl32.Vec3) mgl32.Vec3 { return mgl32.Vec3{v.X(), 0, v.Z()} }

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// TurnToFace rotates forward about +Y so that it points from pos toward
// target on the XZ plane. All turns happen on the flat plane regardless of
// terrain height.
//
// A target already within faceEpsilon of forward leaves it untouched. A
// target directly behind is nudged off the co-linear axis first. When no
// valid rotation exists it returns forward unchanged with
// ErrDegenerateFacing.
func TurnToFace(pos, forward, target mgl32.Vec3) (mgl32.Vec3, error) {
	fwd := flat(forward)
	to := flat(target).Sub(flat(pos))
	if !finite(fwd) || !finite(to) || fwd.Len() == 0 || to.Len() == 0 {
		return forward, ErrDegenerateFacing
	}
	fwd = fwd.Normalize()
	to = to.Normalize()

	if to.Sub(fwd).Len() <= faceEpsilon {
		return forward, nil
	}
	if to.Mul(-1).Sub(fwd).Len() <= faceEpsilon {
		to = mgl32.Vec3{to.X() + faceEpsilon, 0, to.Z() + faceEpsilon}.Normalize()
	}

	dot := float64(mgl32.Clamp(fwd.Dot(to), -1, 1))
	angle := math.Acos(dot)
	// Rotate3DY turns +Z toward +X for positive angles.
	if fwd.Z()*to.X()-fwd.X()*to.Z() < 0 {
		angle = -angle
	}
	if math.IsNaN(angle) {
		return forward, ErrDegenerateFacing
	}

	out := mgl32.Rotate3DY(float32(angle)).Mul3x1(fwd)
	if !finite(out) || out.Len() == 0 {
		return forward, ErrDegenerateFacing
	}
	return out.Normalize(), nil
}

// Heading is the yaw of v in radians, zero along +Z, positive toward +X.
func Heading(v mgl32.Vec3) float64 {
	return math.Atan2(float64(v.X()), float64(v.Z()))
}

// normalizeAngle wraps an angle to [-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// TurnAngle is the signed rotation in radians from one heading to another.
func TurnAngle(from, to mgl32.Vec3) float64 {
	return normalizeAngle(Heading(to) - Heading(from))
}
