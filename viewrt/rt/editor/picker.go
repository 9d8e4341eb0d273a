package editor

import (
	"fmt"

	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

type ResultKind uint8

const (
	// NoHit: nothing to report. Only deployment clicks produce it.
	NoHit ResultKind = iota
	// Selection carries the hit entity id, or "" when the click hit nothing.
	Selection
	// Position carries a ground placement point.
	Position
)

func (k ResultKind) String() string {
	switch k {
	case NoHit:
		return "no-hit"
	case Selection:
		return "selection"
	case Position:
		return "position"
	}
	return fmt.Sprintf("ResultKind(%d)", uint8(k))
}

type Result struct {
	Kind     ResultKind
	EntityID string
	Position mgl32.Vec3
}

// Picker resolves clicks for one scene and camera.
type Picker struct {
	Camera *core.OrbitCamera
	Scene  *core.Scene
	Ground *core.Object
	// Altitude is added to the ground intersection height of placements.
	Altitude float32
}

// Resolve casts a ray through ndc using the camera as it is now.
func (p *Picker) Resolve(ndc mgl32.Vec2, mode core.DeploymentMode) Result {
	ray := PickRay(ndc, p.Camera)
	return p.ResolveRay(ray, mode)
}

func (p *Picker) ResolveRay(ray Ray, mode core.DeploymentMode) Result {
	if mode.Enabled {
		pt, ok := IntersectGround(ray, p.Ground)
		if !ok {
			return Result{Kind: NoHit}
		}
		pt[1] += p.Altitude
		return Result{Kind: Position, Position: pt}
	}

	hit := Pick(p.Scene.Objects, ray)
	if hit == nil {
		return Result{Kind: Selection}
	}
	return Result{Kind: Selection, EntityID: hit.Object.Tag}
}
