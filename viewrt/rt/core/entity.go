package core

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryRadar
	CategoryOpticalCamera
	CategoryRadioDetector
	CategoryUAV
	CategoryGPSJammer
)

var categoryNames = map[Category]string{
	CategoryUnknown:       "UNKNOWN",
	CategoryRadar:         "RADAR",
	CategoryOpticalCamera: "OPTICAL_CAMERA",
	CategoryRadioDetector: "RADIO_DETECTOR",
	CategoryUAV:           "UAV",
	CategoryGPSJammer:     "GPS_JAMMER",
}

// ParseCategory maps a wire type name to a Category. Unrecognised names map to CategoryUnknown.
func ParseCategory(name string) Category {
	for c, n := range categoryNames {
		if n == name {
			return c
		}
	}
	return CategoryUnknown
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// IsSensor reports whether entities of this category may carry a detection-range overlay.
func (c Category) IsSensor() bool {
	switch c {
	case CategoryRadar, CategoryOpticalCamera, CategoryRadioDetector:
		return true
	}
	return false
}

// Entity is one record of a snapshot. A missing coordinate is carried as NaN.
type Entity struct {
	ID             string
	Category       Category
	Name           string
	Position       mgl32.Vec3
	DetectionRange float32
}

// Snapshot is the full entity list for one reconciliation pass.
type Snapshot []Entity

func (e Entity) Valid() bool {
	if e.ID == "" {
		return false
	}
	for _, v := range e.Position {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// HasDetectionRange reports a usable, positive detection range.
func (e Entity) HasDetectionRange() bool {
	r := e.DetectionRange
	return r > 0 && !math32.IsInf(r, 0) && !math32.IsNaN(r)
}

// MissingPosition is the Position value used for records without coordinates.
func MissingPosition() mgl32.Vec3 {
	nan := math32.NaN()
	return mgl32.Vec3{nan, nan, nan}
}

var ErrInvalidBoundary = errors.New("invalid boundary")

// Boundary is the axis-aligned extent of the airspace in world meters.
type Boundary struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b Boundary) Validate() error {
	for i, v := range append(b.Min[:], b.Max[:]...) {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("%w: component %d is not finite", ErrInvalidBoundary, i)
		}
	}
	if b.Max.X() <= b.Min.X() || b.Max.Z() <= b.Min.Z() {
		return fmt.Errorf("%w: min %v must be below max %v on x and z", ErrInvalidBoundary, b.Min, b.Max)
	}
	return nil
}

func (b Boundary) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Boundary) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// ContainsXZ reports whether p lies inside the boundary footprint, ignoring height.
func (b Boundary) ContainsXZ(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// DeploymentMode switches clicks from entity selection to ground placement.
type DeploymentMode struct {
	Enabled        bool
	DeviceCategory Category
}
