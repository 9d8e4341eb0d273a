package main

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/airspace/viewrt/rt/core"
)

// store is the viewer's application state. The engine reports clicks; the
// store decides and feeds the result back.
type store struct {
	selected    string
	deploy      core.DeploymentMode
	position    mgl32.Vec3
	hasPosition bool
}

// selectEntity reports whether the selection changed.
func (s *store) selectEntity(id string) bool {
	if s.selected == id {
		return false
	}
	s.selected = id
	return true
}

func (s *store) setDeploymentMode(mode core.DeploymentMode) {
	s.deploy = mode
	if !mode.Enabled {
		s.hasPosition = false
	}
}

func (s *store) setDeploymentPosition(p mgl32.Vec3) {
	s.position, s.hasPosition = p, true
}

// replaceEntities drops the selection when its entity left the snapshot and
// reports whether that happened.
func (s *store) replaceEntities(snap core.Snapshot) bool {
	if s.selected == "" {
		return false
	}
	for _, e := range snap {
		if e.ID == s.selected {
			return false
		}
	}
	s.selected = ""
	return true
}
