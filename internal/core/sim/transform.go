package sim

import "github.com/zeusync/sophysics/internal/core/geom"

// Transform is the kernel-side position and rotation of a SimObject. Every
// SimObject owns exactly one.
type Transform struct {
	Base
	Position geom.Vec2
	Rotation float64
}

func NewTransform(position geom.Vec2, rotation float64) *Transform {
	return &Transform{Position: position, Rotation: rotation}
}
