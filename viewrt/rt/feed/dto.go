// Package feed reads airspace state from outside the viewer: snapshot files
// on disk and a live WebSocket stream. Wire documents follow the simulation
// server's JSON layout; YAML files with the same keys are accepted too.
package feed

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/airspace/viewrt/rt/core"
)

// Position is a wire coordinate. Missing components stay nil.
type Position struct {
	X *float64 `json:"x" yaml:"x"`
	Y *float64 `json:"y" yaml:"y"`
	Z *float64 `json:"z" yaml:"z"`
}

func Pos(x, y, z float64) *Position {
	return &Position{X: &x, Y: &y, Z: &z}
}

// Vec3 converts p, mapping missing components (or a nil p) to NaN.
func (p *Position) Vec3() mgl32.Vec3 {
	if p == nil {
		return core.MissingPosition()
	}
	return mgl32.Vec3{coord(p.X), coord(p.Y), coord(p.Z)}
}

func coord(v *float64) float32 {
	if v == nil {
		return float32(math.NaN())
	}
	return float32(*v)
}

type EntityStateDTO struct {
	ID             string         `json:"id" yaml:"id"`
	Type           string         `json:"type" yaml:"type"`
	Name           string         `json:"name" yaml:"name"`
	Position       *Position      `json:"position" yaml:"position"`
	Status         string         `json:"status,omitempty" yaml:"status,omitempty"`
	Properties     map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	LastUpdateTime string         `json:"lastUpdateTime,omitempty" yaml:"lastUpdateTime,omitempty"`
	Active         bool           `json:"active" yaml:"active"`
	HealthStatus   string         `json:"healthStatus,omitempty" yaml:"healthStatus,omitempty"`
}

// Entity converts the record. The detection range comes from
// properties.detectionRange; absent or non-numeric values give 0.
func (d EntityStateDTO) Entity() core.Entity {
	var rng float32
	if v, ok := d.Properties["detectionRange"]; ok {
		rng, _ = number(v)
	}
	return core.Entity{
		ID:             d.ID,
		Category:       core.ParseCategory(d.Type),
		Name:           d.Name,
		Position:       d.Position.Vec3(),
		DetectionRange: rng,
	}
}

func number(v any) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	case uint64:
		return float32(n), true
	}
	return 0, false
}

type AirspaceDetailsDTO struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	BoundaryMin Position         `json:"boundaryMin" yaml:"boundaryMin"`
	BoundaryMax Position         `json:"boundaryMax" yaml:"boundaryMax"`
	TimeStep    float64          `json:"timeStep" yaml:"timeStep"`
	CurrentTime float64          `json:"currentTime" yaml:"currentTime"`
	EntityCount int              `json:"entityCount" yaml:"entityCount"`
	Devices     []EntityStateDTO `json:"devices" yaml:"devices"`
	UAVs        []EntityStateDTO `json:"uavs" yaml:"uavs"`
}

func (d AirspaceDetailsDTO) Boundary() core.Boundary {
	return core.Boundary{Min: d.BoundaryMin.Vec3(), Max: d.BoundaryMax.Vec3()}
}

// Snapshot lists devices first, then UAVs.
func (d AirspaceDetailsDTO) Snapshot() core.Snapshot {
	out := make(core.Snapshot, 0, len(d.Devices)+len(d.UAVs))
	for _, e := range d.Devices {
		out = append(out, e.Entity())
	}
	for _, e := range d.UAVs {
		out = append(out, e.Entity())
	}
	return out
}

type PositionUpdateEventDTO struct {
	EntityID   string    `json:"entityId" yaml:"entityId"`
	EntityType string    `json:"entityType" yaml:"entityType"`
	Position   *Position `json:"position" yaml:"position"`
	Timestamp  string    `json:"timestamp" yaml:"timestamp"`
}

// apiResponse is the server's REST envelope.
type apiResponse struct {
	Code    int                 `json:"code" yaml:"code"`
	Message string              `json:"message" yaml:"message"`
	Data    *AirspaceDetailsDTO `json:"data" yaml:"data"`
}

// Update is one complete view of the airspace handed to the engine.
type Update struct {
	Name     string
	Boundary core.Boundary
	Snapshot core.Snapshot
}

func (d AirspaceDetailsDTO) Update() Update {
	return Update{Name: d.Name, Boundary: d.Boundary(), Snapshot: d.Snapshot()}
}

// State holds the latest airspace document and folds incremental events
// into it.
type State struct {
	doc   AirspaceDetailsDTO
	valid bool
}

func (s *State) Valid() bool { return s.valid }

// Replace takes a copy of doc; later events never write through to it.
func (s *State) Replace(doc AirspaceDetailsDTO) {
	doc.Devices = slices.Clone(doc.Devices)
	doc.UAVs = slices.Clone(doc.UAVs)
	s.doc = doc
	s.valid = true
}

// ApplyPosition moves one entity. It reports false when the id is unknown.
func (s *State) ApplyPosition(ev PositionUpdateEventDTO) bool {
	if e := s.find(ev.EntityID); e != nil {
		e.Position = ev.Position
		e.LastUpdateTime = ev.Timestamp
		return true
	}
	return false
}

// Upsert replaces the entity with the same id, or appends it to devices or
// UAVs by type.
func (s *State) Upsert(ent EntityStateDTO) {
	if e := s.find(ent.ID); e != nil {
		*e = ent
		return
	}
	if core.ParseCategory(ent.Type) == core.CategoryUAV {
		s.doc.UAVs = append(s.doc.UAVs, ent)
	} else {
		s.doc.Devices = append(s.doc.Devices, ent)
	}
	s.doc.EntityCount = len(s.doc.Devices) + len(s.doc.UAVs)
}

func (s *State) Remove(id string) bool {
	match := func(e EntityStateDTO) bool { return e.ID == id }
	n := len(s.doc.Devices) + len(s.doc.UAVs)
	s.doc.Devices = slices.DeleteFunc(s.doc.Devices, match)
	s.doc.UAVs = slices.DeleteFunc(s.doc.UAVs, match)
	s.doc.EntityCount = len(s.doc.Devices) + len(s.doc.UAVs)
	return s.doc.EntityCount != n
}

func (s *State) Update() (Update, error) {
	if !s.valid {
		return Update{}, fmt.Errorf("no airspace document received yet")
	}
	return s.doc.Update(), nil
}

func (s *State) find(id string) *EntityStateDTO {
	for i := range s.doc.Devices {
		if s.doc.Devices[i].ID == id {
			return &s.doc.Devices[i]
		}
	}
	for i := range s.doc.UAVs {
		if s.doc.UAVs[i].ID == id {
			return &s.doc.UAVs[i]
		}
	}
	return nil
}
