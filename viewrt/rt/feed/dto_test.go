package feed

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/airspace/viewrt/rt/core"
)

const sampleJSON = `{
	"code": 200,
	"message": "ok",
	"data": {
		"id": "as-1",
		"name": "Test range",
		"boundaryMin": {"x": -500, "y": 0, "z": -500},
		"boundaryMax": {"x": 500, "y": 300, "z": 500},
		"devices": [
			{"id": "r1", "type": "RADAR", "name": "Radar 1", "position": {"x": 0, "y": 0, "z": 0},
			 "properties": {"detectionRange": 300}},
			{"id": "j1", "type": "GPS_JAMMER", "name": "Jammer", "position": {"x": 10, "y": 0, "z": 5}}
		],
		"uavs": [
			{"id": "u1", "type": "UAV", "name": "Drone", "position": {"x": 200, "y": 120.5, "z": -150}},
			{"id": "u2", "type": "UAV", "name": "Lost", "position": {"x": 1, "z": 2}}
		]
	}
}`

const sampleYAML = `
id: as-2
name: Yaml range
boundaryMin: {x: -100, y: 0, z: -100}
boundaryMax: {x: 100, y: 50, z: 100}
devices:
  - id: c1
    type: OPTICAL_CAMERA
    position: {x: 5, y: 0, z: 5}
    properties:
      detectionRange: 80
uavs: []
`

func TestDecodeEnvelopeJSON(t *testing.T) {
	doc, err := Decode([]byte(sampleJSON), formatJSON)
	require.NoError(t, err)
	assert.Equal(t, "Test range", doc.Name)

	up := doc.Update()
	assert.Equal(t, core.Boundary{Min: mgl32.Vec3{-500, 0, -500}, Max: mgl32.Vec3{500, 300, 500}}, up.Boundary)
	require.Len(t, up.Snapshot, 4)

	r1 := up.Snapshot[0]
	assert.Equal(t, core.CategoryRadar, r1.Category)
	assert.Equal(t, float32(300), r1.DetectionRange)
	assert.True(t, r1.Valid())

	assert.Equal(t, core.CategoryGPSJammer, up.Snapshot[1].Category)
	assert.Equal(t, "u1", up.Snapshot[2].ID)
	assert.Equal(t, float32(120.5), up.Snapshot[2].Position.Y())

	lost := up.Snapshot[3]
	assert.True(t, math32.IsNaN(lost.Position.Y()))
	assert.False(t, lost.Valid())
}

func TestDecodeBareYAML(t *testing.T) {
	doc, err := Decode([]byte(sampleYAML), formatYAML)
	require.NoError(t, err)
	snap := doc.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, float32(80), snap[0].DetectionRange)
	assert.Equal(t, core.CategoryOpticalCamera, snap[0].Category)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("   "), formatYAML)
	assert.Error(t, err)
	_, err = Decode([]byte("{not json"), formatJSON)
	assert.Error(t, err)
}

func TestEntityWithoutPositionIsMissing(t *testing.T) {
	e := EntityStateDTO{ID: "x", Type: "SOMETHING_NEW", Properties: map[string]any{"detectionRange": "far"}}.Entity()
	assert.Equal(t, core.CategoryUnknown, e.Category)
	assert.Zero(t, e.DetectionRange)
	assert.False(t, e.Valid())
}

func TestStateFoldsEvents(t *testing.T) {
	doc, err := Decode([]byte(sampleJSON), formatJSON)
	require.NoError(t, err)

	var s State
	_, err = s.Update()
	assert.Error(t, err)
	s.Replace(doc)

	assert.True(t, s.ApplyPosition(PositionUpdateEventDTO{EntityID: "u1", Position: Pos(1, 2, 3)}))
	assert.False(t, s.ApplyPosition(PositionUpdateEventDTO{EntityID: "ghost", Position: Pos(0, 0, 0)}))

	s.Upsert(EntityStateDTO{ID: "u3", Type: "UAV", Position: Pos(9, 9, 9)})
	s.Upsert(EntityStateDTO{ID: "r1", Type: "RADAR", Position: Pos(7, 0, 7)})
	assert.True(t, s.Remove("j1"))
	assert.False(t, s.Remove("j1"))

	up, err := s.Update()
	require.NoError(t, err)
	ids := make([]string, 0, len(up.Snapshot))
	for _, e := range up.Snapshot {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"r1", "u1", "u2", "u3"}, ids)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, up.Snapshot[1].Position)
	// the replacement carries no properties, so the range is gone
	assert.Zero(t, up.Snapshot[0].DetectionRange)

	// the original document is untouched
	assert.Equal(t, "j1", doc.Devices[1].ID)
	assert.Equal(t, float32(200), doc.UAVs[0].Position.Vec3().X())
}
