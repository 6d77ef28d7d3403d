package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Ray is a half line starting at an origin. The direction does not need to be normalized; ray parameters
// are measured in multiples of it.
type Ray struct {
	origin    r3.Vector
	direction r3.Vector

	inv      r3.Vector
	parallel [3]bool
}

// NewRay returns a ray with the given origin and direction and precomputes the reciprocal direction used by
// the slab test.
func NewRay(origin, direction r3.Vector) Ray {
	r := Ray{origin: origin, direction: direction}
	for _, a := range Axes {
		d := Component(direction, a)
		if math.Abs(d) < floatEpsilon {
			r.parallel[a] = true
			continue
		}
		r.inv = WithComponent(r.inv, a, 1/d)
	}
	return r
}

// NewAxisRay returns a ray starting at origin and pointing along the positive direction of the axis.
func NewAxisRay(origin r3.Vector, a r3.Axis) Ray {
	return NewRay(origin, AxisVector(a))
}

// Origin returns the start point of the ray.
func (r Ray) Origin() r3.Vector {
	return r.origin
}

// Direction returns the direction of the ray.
func (r Ray) Direction() r3.Vector {
	return r.direction
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) r3.Vector {
	return r.origin.Add(r.direction.Mul(t))
}

// IsDegenerate returns whether the ray has no direction.
func (r Ray) IsDegenerate() bool {
	return r.parallel[0] && r.parallel[1] && r.parallel[2]
}

func (r Ray) String() string {
	return fmt.Sprintf("ray from (%.4f, %.4f, %.4f) towards (%.4f, %.4f, %.4f)",
		r.origin.X, r.origin.Y, r.origin.Z, r.direction.X, r.direction.Y, r.direction.Z)
}
