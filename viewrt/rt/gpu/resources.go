package gpu

import (
	"fmt"

	"github.com/gekko3d/airspace"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/google/uuid"
)

type Stats struct {
	GeometriesCreated  int
	GeometriesDisposed int
	MaterialsCreated   int
	MaterialsDisposed  int
}

func (s Stats) LiveGeometries() int { return s.GeometriesCreated - s.GeometriesDisposed }
func (s Stats) LiveMaterials() int  { return s.MaterialsCreated - s.MaterialsDisposed }

// ResourceManager is the single owner of backend geometry and material
// handles. A handle leaves the live set before the backend destroy runs, so a
// second dispose is rejected without reaching the backend.
type ResourceManager struct {
	backend    Backend
	log        airspace.Logger
	geometries map[GeometryID]*core.MeshData
	materials  map[MaterialID]core.Material
	stats      Stats
}

func NewResourceManager(backend Backend, log airspace.Logger) *ResourceManager {
	return &ResourceManager{
		backend:    backend,
		log:        airspace.OrNop(log),
		geometries: make(map[GeometryID]*core.MeshData),
		materials:  make(map[MaterialID]core.Material),
	}
}

func makeResourceID() string {
	return uuid.NewString()
}

// NewGeometry builds the mesh on the CPU and uploads it. The mesh stays
// available through Mesh for picking until disposal.
func (m *ResourceManager) NewGeometry(desc core.GeometryDescriptor) (GeometryID, *core.MeshData, error) {
	mesh, err := desc.Build()
	if err != nil {
		return "", nil, fmt.Errorf("build %v geometry: %w", desc.Shape, err)
	}
	id := GeometryID(makeResourceID())
	if err := m.backend.CreateGeometry(id, mesh); err != nil {
		return "", nil, fmt.Errorf("create geometry: %w", err)
	}
	m.geometries[id] = mesh
	m.stats.GeometriesCreated++
	return id, mesh, nil
}

func (m *ResourceManager) NewMaterial(mat core.Material) (MaterialID, error) {
	id := MaterialID(makeResourceID())
	if err := m.backend.CreateMaterial(id, mat); err != nil {
		return "", fmt.Errorf("create material: %w", err)
	}
	m.materials[id] = mat
	m.stats.MaterialsCreated++
	return id, nil
}

// DisposeGeometry releases a live geometry. Backend failures are logged and
// the handle still counts as disposed.
func (m *ResourceManager) DisposeGeometry(id GeometryID) error {
	if _, ok := m.geometries[id]; !ok {
		return fmt.Errorf("geometry %s: %w", id, ErrAlreadyDisposed)
	}
	delete(m.geometries, id)
	m.stats.GeometriesDisposed++
	if err := m.backend.DestroyGeometry(id); err != nil {
		m.log.Warnf("destroy geometry %s: %v", id, err)
	}
	return nil
}

func (m *ResourceManager) DisposeMaterial(id MaterialID) error {
	if _, ok := m.materials[id]; !ok {
		return fmt.Errorf("material %s: %w", id, ErrAlreadyDisposed)
	}
	delete(m.materials, id)
	m.stats.MaterialsDisposed++
	if err := m.backend.DestroyMaterial(id); err != nil {
		m.log.Warnf("destroy material %s: %v", id, err)
	}
	return nil
}

func (m *ResourceManager) Mesh(id GeometryID) (*core.MeshData, bool) {
	mesh, ok := m.geometries[id]
	return mesh, ok
}

func (m *ResourceManager) Material(id MaterialID) (core.Material, bool) {
	mat, ok := m.materials[id]
	return mat, ok
}

func (m *ResourceManager) Stats() Stats {
	return m.stats
}

// DisposeAll releases every live handle. Used on teardown; returns the number released.
func (m *ResourceManager) DisposeAll() int {
	n := 0
	for id := range m.geometries {
		if m.DisposeGeometry(id) == nil {
			n++
		}
	}
	for id := range m.materials {
		if m.DisposeMaterial(id) == nil {
			n++
		}
	}
	if n > 0 {
		m.log.Debugf("disposed %d leftover resources", n)
	}
	return n
}
