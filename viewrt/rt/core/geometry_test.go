package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometryBounds(t *testing.T) {
	tests := []struct {
		name string
		desc GeometryDescriptor
		min  mgl32.Vec3
		max  mgl32.Vec3
	}{
		{"box", BoxGeometry(30, 20, 30), mgl32.Vec3{-15, -10, -15}, mgl32.Vec3{15, 10, 15}},
		{"cone", ConeGeometry(20, 40, 8), mgl32.Vec3{-20, -20, -20}, mgl32.Vec3{20, 20, 20}},
		{"cylinder", CylinderGeometry(15, 15, 40, 16), mgl32.Vec3{-15, -20, -15}, mgl32.Vec3{15, 20, 15}},
		{"sphere", SphereGeometry(15, 16), mgl32.Vec3{-15, -15, -15}, mgl32.Vec3{15, 15, 15}},
		{"ring", RingGeometry(0, 100, 32), mgl32.Vec3{-100, -100, 0}, mgl32.Vec3{100, 100, 0}},
		{"plane", PlaneGeometry(1000, 600), mgl32.Vec3{-500, -300, 0}, mgl32.Vec3{500, 300, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mesh, err := tc.desc.Build()
			require.NoError(t, err)
			require.NotEmpty(t, mesh.Indices)
			assert.Zero(t, len(mesh.Indices)%3)
			for k := 0; k < 3; k++ {
				assert.InDelta(t, tc.min[k], mesh.Bounds[0][k], 0.01, "min[%d]", k)
				assert.InDelta(t, tc.max[k], mesh.Bounds[1][k], 0.01, "max[%d]", k)
			}
			for _, idx := range mesh.Indices {
				require.Less(t, int(idx), len(mesh.Vertices))
			}
		})
	}
}

// Closed convex shapes centred on the origin: every front face must point away from it.
func TestGeometryWindingOutward(t *testing.T) {
	for _, desc := range []GeometryDescriptor{
		BoxGeometry(20, 20, 20),
		ConeGeometry(20, 40, 8),
		CylinderGeometry(15, 15, 40, 16),
		SphereGeometry(15, 16),
	} {
		mesh, err := desc.Build()
		require.NoError(t, err)
		for i := 0; i < mesh.TriangleCount(); i++ {
			a, b, c := mesh.Triangle(i)
			n := b.Sub(a).Cross(c.Sub(a))
			centroid := a.Add(b).Add(c).Mul(1.0 / 3)
			if n.Dot(centroid) < -1e-3 {
				t.Errorf("%v triangle %d winds inward: normal %v at %v", desc.Shape, i, n, centroid)
			}
		}
	}
}

func TestGeometryFlatShapesFaceZ(t *testing.T) {
	for _, desc := range []GeometryDescriptor{RingGeometry(0, 50, 32), RingGeometry(10, 50, 32), PlaneGeometry(10, 10)} {
		mesh, err := desc.Build()
		require.NoError(t, err)
		for i := 0; i < mesh.TriangleCount(); i++ {
			a, b, c := mesh.Triangle(i)
			n := b.Sub(a).Cross(c.Sub(a))
			assert.Greater(t, n.Z(), float32(0), "%v triangle %d", desc.Shape, i)
		}
	}
}

func TestGeometryRejectsInvalid(t *testing.T) {
	for _, desc := range []GeometryDescriptor{
		BoxGeometry(0, 1, 1),
		ConeGeometry(-1, 1, 8),
		SphereGeometry(0, 16),
		RingGeometry(10, 5, 32),
		PlaneGeometry(1, 0),
		{Shape: Shape(99)},
	} {
		_, err := desc.Build()
		assert.Error(t, err, "%v", desc)
	}
}

func TestGeometryDefaultSegments(t *testing.T) {
	a, err := SphereGeometry(10, 0).Build()
	require.NoError(t, err)
	b, err := SphereGeometry(10, 16).Build()
	require.NoError(t, err)
	assert.Equal(t, len(a.Vertices), len(b.Vertices))
}

func TestGridGeometry(t *testing.T) {
	mesh, err := GridGeometry(100, 10, 2).Build()
	require.NoError(t, err)

	// eleven strips per axis, four vertices each
	assert.Len(t, mesh.Vertices, 11*2*4)
	assert.Equal(t, mgl32.Vec3{-51, 0, -51}, mesh.Bounds[0])
	assert.Equal(t, mgl32.Vec3{51, 0, 51}, mesh.Bounds[1])
	for i := 0; i < mesh.TriangleCount(); i++ {
		a, b, c := mesh.Triangle(i)
		n := b.Sub(a).Cross(c.Sub(a))
		assert.Greater(t, n.Y(), float32(0), "triangle %d must face up", i)
	}

	_, err = GridGeometry(100, 0, 2).Build()
	assert.Error(t, err)
	_, err = GridGeometry(100, 10, 0).Build()
	assert.Error(t, err)
}
