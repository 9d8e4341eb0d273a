package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gekko3d/airspace"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/gekko3d/airspace/viewrt/rt/gpu"
)

var ErrDuplicateEntity = errors.New("entity id already tracked")

// meshHandle is one scene object together with the resources it owns.
type meshHandle struct {
	Object   *core.Object
	Geometry gpu.GeometryID
	Material gpu.MaterialID
}

type slot struct {
	id      string
	mesh    meshHandle
	overlay *meshHandle
	used    bool
}

// Registry tracks the scene objects built for each entity id. Slots live in
// an arena indexed by id; freed slots are reused. Every handle in the
// registry is in the scene, and removing an entry disposes its resources
// exactly once.
type Registry struct {
	scene *core.Scene
	res   *gpu.ResourceManager
	log   airspace.Logger

	slots []slot
	free  []int
	index map[string]int
}

func NewRegistry(scene *core.Scene, res *gpu.ResourceManager, log airspace.Logger) *Registry {
	return &Registry{
		scene: scene,
		res:   res,
		log:   airspace.OrNop(log),
		index: make(map[string]int),
	}
}

// Insert adds the entity mesh and optional overlay to the scene. Ownership of
// the handles passes to the registry only on success.
func (r *Registry) Insert(id string, mesh meshHandle, overlay *meshHandle) error {
	if _, ok := r.index[id]; ok {
		return fmt.Errorf("insert %q: %w", id, ErrDuplicateEntity)
	}

	var i int
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		i = len(r.slots) - 1
	}
	r.slots[i] = slot{id: id, mesh: mesh, overlay: overlay, used: true}
	r.index[id] = i

	r.scene.AddObject(mesh.Object)
	if overlay != nil {
		r.scene.AddObject(overlay.Object)
	}
	return nil
}

// Remove detaches and disposes everything tracked for id.
func (r *Registry) Remove(id string) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	s := &r.slots[i]
	r.release(s.mesh)
	if s.overlay != nil {
		r.release(*s.overlay)
	}
	*s = slot{}
	delete(r.index, id)
	r.free = append(r.free, i)
	return true
}

// Clear removes every entry and returns how many there were.
func (r *Registry) Clear() int {
	n := 0
	for _, id := range r.IDs() {
		if r.Remove(id) {
			n++
		}
	}
	return n
}

// IDs returns the tracked ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.index))
	for id := range r.index {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Registry) Lookup(id string) (*core.Object, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.slots[i].mesh.Object, true
}

// Overlay returns the detection-range object of id, if it has one.
func (r *Registry) Overlay(id string) (*core.Object, bool) {
	i, ok := r.index[id]
	if !ok || r.slots[i].overlay == nil {
		return nil, false
	}
	return r.slots[i].overlay.Object, true
}

func (r *Registry) Len() int { return len(r.index) }

// Overlays counts tracked detection-range objects.
func (r *Registry) Overlays() int {
	n := 0
	for _, s := range r.slots {
		if s.used && s.overlay != nil {
			n++
		}
	}
	return n
}

// Pickables returns the entity meshes in slot order.
func (r *Registry) Pickables() []*core.Object {
	out := make([]*core.Object, 0, len(r.index))
	for _, s := range r.slots {
		if s.used && s.mesh.Object.Pickable {
			out = append(out, s.mesh.Object)
		}
	}
	return out
}

func (r *Registry) release(h meshHandle) {
	if !r.scene.RemoveObject(h.Object) {
		r.log.Warnf("object %s was not in the scene", h.Object.Name)
	}
	disposeHandle(r.res, r.log, h)
}

func disposeHandle(res *gpu.ResourceManager, log airspace.Logger, h meshHandle) {
	if h.Geometry != "" {
		if err := res.DisposeGeometry(h.Geometry); err != nil {
			log.Warnf("dispose %s geometry: %v", h.Object.Name, err)
		}
	}
	if h.Material != "" {
		if err := res.DisposeMaterial(h.Material); err != nil {
			log.Warnf("dispose %s material: %v", h.Object.Name, err)
		}
	}
}
