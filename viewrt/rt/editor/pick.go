// Package editor resolves pointer clicks against the scene by ray casting.
package editor

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// PickRay builds the world ray from the camera eye through an NDC point.
// The camera aspect must match the viewport the NDC came from.
func PickRay(ndc mgl32.Vec2, camera *core.OrbitCamera) Ray {
	forward, right, up := camera.Basis()
	tanHalfFov := math32.Tan(camera.FovY / 2)

	dir := forward.
		Add(right.Mul(ndc.X() * camera.Aspect * tanHalfFov)).
		Add(up.Mul(ndc.Y() * tanHalfFov))
	return Ray{Origin: camera.Position(), Direction: dir.Normalize()}
}

type HitResult struct {
	Object *core.Object
	T      float32
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// Pick returns the nearest pickable object hit by ray, or nil. Equal
// distances keep the object seen first.
func Pick(objects []*core.Object, ray Ray) *HitResult {
	closestT := math32.Inf(1)
	var bestHit *HitResult

	for _, obj := range objects {
		if !obj.Pickable || obj.Mesh == nil {
			continue
		}

		// 1. Broad phase: World AABB
		aabb := obj.WorldAABB()
		tMin, _, ok := intersectAABB(ray, aabb[0], aabb[1])
		if !ok || tMin >= closestT {
			continue
		}

		// 2. Narrow phase: triangles in object space
		ro := obj.Transform.InversePoint(ray.Origin)
		rd := obj.Transform.InverseDir(ray.Direction)

		tObj, tri, hit := intersectMesh(obj.Mesh, ro, rd)
		if !hit {
			continue
		}

		pWorld := obj.Transform.Point(ro.Add(rd.Mul(tObj)))
		tWorld := pWorld.Sub(ray.Origin).Len()
		if tWorld >= closestT {
			continue
		}
		closestT = tWorld

		a, b, c := obj.Mesh.Triangle(tri)
		nObj := b.Sub(a).Cross(c.Sub(a))
		// normals transform by the inverse transpose
		nWorld := obj.Transform.WorldToObject().Transpose().Mul4x1(nObj.Vec4(0.0)).Vec3().Normalize()
		if nWorld.Dot(ray.Direction) > 0 {
			nWorld = nWorld.Mul(-1)
		}

		bestHit = &HitResult{
			Object: obj,
			T:      tWorld,
			Point:  pWorld,
			Normal: nWorld,
		}
	}

	return bestHit
}

// IntersectGround hits the horizontal plane through ground's origin, limited
// to the ground's world footprint. Parallel rays and hits behind the origin miss.
func IntersectGround(ray Ray, ground *core.Object) (mgl32.Vec3, bool) {
	if ground == nil {
		return mgl32.Vec3{}, false
	}
	const eps = 1e-6
	planeY := ground.Transform.Position.Y()
	denom := ray.Direction.Y()
	if math32.Abs(denom) < eps {
		return mgl32.Vec3{}, false
	}
	t := (planeY - ray.Origin.Y()) / denom
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	p := ray.At(t)
	aabb := ground.WorldAABB()
	const slack = 1e-3
	if p.X() < aabb[0].X()-slack || p.X() > aabb[1].X()+slack ||
		p.Z() < aabb[0].Z()-slack || p.Z() > aabb[1].Z()+slack {
		return mgl32.Vec3{}, false
	}
	p[1] = planeY
	return p, true
}

// intersectAABB is the slab test. The entry distance is clamped to 0 for
// origins inside the box.
func intersectAABB(ray Ray, minB, maxB mgl32.Vec3) (tMin, tMax float32, ok bool) {
	tMin, tMax = 0, math32.Inf(1)
	for k := 0; k < 3; k++ {
		o, d := ray.Origin[k], ray.Direction[k]
		if math32.Abs(d) < 1e-12 {
			if o < minB[k] || o > maxB[k] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (minB[k] - o) * inv
		t2 := (maxB[k] - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
		if tMin > tMax {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}

// intersectMesh returns the smallest positive ray parameter over all
// triangles (Möller–Trumbore, both sides).
func intersectMesh(mesh *core.MeshData, ro, rd mgl32.Vec3) (float32, int, bool) {
	best := math32.Inf(1)
	bestTri := -1
	for i := 0; i < mesh.TriangleCount(); i++ {
		a, b, c := mesh.Triangle(i)
		if t, ok := intersectTriangle(ro, rd, a, b, c); ok && t < best {
			best, bestTri = t, i
		}
	}
	return best, bestTri, bestTri >= 0
}

func intersectTriangle(ro, rd, a, b, c mgl32.Vec3) (float32, bool) {
	const eps = 1e-7
	// accept hits on shared edges from both neighbours
	const edgeEps = 1e-5
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := rd.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < eps {
		return 0, false
	}
	inv := 1 / det
	s := ro.Sub(a)
	u := s.Dot(p) * inv
	if u < -edgeEps || u > 1+edgeEps {
		return 0, false
	}
	q := s.Cross(e1)
	v := rd.Dot(q) * inv
	if v < -edgeEps || u+v > 1+edgeEps {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= eps {
		return 0, false
	}
	return t, true
}
