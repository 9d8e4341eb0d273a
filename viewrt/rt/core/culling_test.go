package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestFrustumCulling(t *testing.T) {
	// eye 100 m above the ground looking north (-Z), 60 degree fov, far 5 km
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 1, 5000)
	view := mgl32.LookAtV(mgl32.Vec3{0, 100, 0}, mgl32.Vec3{0, 100, -1}, mgl32.Vec3{0, 1, 0})
	planes := ExtractFrustum(proj.Mul4(view))

	box := func(x, y, z, half float32) [2]mgl32.Vec3 {
		c := mgl32.Vec3{x, y, z}
		h := mgl32.Vec3{half, half, half}
		return [2]mgl32.Vec3{c.Sub(h), c.Add(h)}
	}
	cases := []struct {
		name string
		aabb [2]mgl32.Vec3
		want bool
	}{
		{"uav ahead", box(0, 100, -500, 15), true},
		{"radar far left", box(-2000, 100, -500, 20), false},
		{"radar far right", box(2000, 100, -500, 20), false},
		{"behind the eye", box(0, 100, 200, 20), false},
		{"beyond far plane", box(0, 100, -6000, 20), false},
		{"straddles left plane", box(-300, 100, -500, 30), true},
		{"ground under everything", [2]mgl32.Vec3{{-10000, -1, -10000}, {10000, 0, 10000}}, true},
	}
	for _, tc := range cases {
		if got := AABBInFrustum(tc.aabb, planes); got != tc.want {
			t.Errorf("%s: visible = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOrbitCameraFrustumSeesTarget(t *testing.T) {
	cam := NewOrbitCamera(testOrbitOptions())
	cam.SetAspect(1280, 720)

	planes := cam.Frustum()
	near := [2]mgl32.Vec3{{-10, 0, -10}, {10, 20, 10}}
	if !AABBInFrustum(near, planes) {
		t.Error("box at the orbit target should be visible")
	}
	behind := [2]mgl32.Vec3{{2000, 2000, 2000}, {2100, 2100, 2100}}
	if AABBInFrustum(behind, planes) {
		t.Error("box behind the camera should be culled")
	}
}
