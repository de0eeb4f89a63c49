package view

import (
	"simscope.ai/internal/metrics"
)

// SpatialView draws independently toggleable layers onto one surface.
// Toggling a layer off only suppresses drawing; the frame always carries every
// layer's data so a re-toggle needs no refetch.
type SpatialView struct {
	ShowDensity     bool
	ShowTrails      bool
	ShowTerritories bool
	ShowHotspots    bool
}

func NewSpatialView() *SpatialView {
	return &SpatialView{ShowDensity: true, ShowTrails: true, ShowTerritories: true, ShowHotspots: true}
}

type SpatialFrame struct {
	Status  Status
	Message string

	Density     []metrics.DensityPoint
	Trails      []metrics.Trail
	Territories []metrics.Territory
	Hotspots    []metrics.Hotspot

	// Copied from the view at build time; the renderer consults these and
	// nothing else when deciding what to draw.
	ShowDensity     bool
	ShowTrails      bool
	ShowTerritories bool
	ShowHotspots    bool
}

func (v *SpatialView) Build(d *metrics.SpatialData, loading bool) (SpatialFrame, error) {
	if loading {
		return SpatialFrame{Status: StatusLoading, Message: "loading spatial metrics"}, nil
	}
	if d == nil {
		return SpatialFrame{Status: StatusNoData, Message: msgNoData}, nil
	}
	st, msg, err := gateField(metrics.DomainSpatial, "density", d.Density)
	if err != nil {
		return SpatialFrame{}, err
	}
	if st == StatusDegraded {
		return SpatialFrame{Status: StatusDegraded, Message: msg}, nil
	}

	return SpatialFrame{
		Status:          StatusReady,
		Density:         d.Density.Value,
		Trails:          d.Trails,
		Territories:     d.Territories,
		Hotspots:        d.Hotspots,
		ShowDensity:     v.ShowDensity,
		ShowTrails:      v.ShowTrails,
		ShowTerritories: v.ShowTerritories,
		ShowHotspots:    v.ShowHotspots,
	}, nil
}
