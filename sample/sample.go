// Package sample models the per-item metadata a caller supplies to the
// writer: STAC-like raster metadata, optional Responsible-AI covariates,
// and any further caller-defined fields, validated up front so the writer
// never has to reject a malformed item mid-build.
package sample

import (
	"fmt"
	"os"
	"time"

	"github.com/tacofoundation/tortilla/errs"
	"github.com/tacofoundation/tortilla/internal/idtracker"
)

// STAC carries the SpatioTemporal Asset Catalog fields recognized by this
// package. Centroid is left empty by the caller when CRS, Geotransform,
// and RasterShape are supplied instead; ExportMetadata then asks a
// CentroidDeriver to compute it.
type STAC struct {
	CRS          string
	RasterShape  [2]int
	Geotransform [6]float64
	Centroid     string
	TimeStart    time.Time
	TimeEnd      time.Time
}

func (s *STAC) hasRasterParams() bool {
	return s.CRS != "" && s.Geotransform != [6]float64{} && s.RasterShape != [2]int{}
}

// RAI carries optional Responsible-AI demographic covariates. A nil
// pointer field means "not supplied", distinct from a supplied zero.
type RAI struct {
	PopulationDensity    *float64
	Female               *float64
	WomenReproductiveAge *float64
	Children             *float64
	Youth                *float64
	Elderly              *float64
}

// CentroidDeriver computes a WKT POINT centroid from raster georeferencing
// parameters. Actual CRS reprojection math is out of scope for this
// module; callers inject an implementation (e.g. backed by PROJ bindings)
// only when they want centroids derived from raster parameters instead of
// supplied directly.
type CentroidDeriver interface {
	Centroid(crs string, geotransform [6]float64, rasterShape [2]int) (string, error)
}

// Sample is one item's full metadata: its stable id, its source path on
// the local filesystem, optional STAC/RAI blocks, and arbitrary extra
// typed fields the writer carries through to the footer unmodified.
type Sample struct {
	ID   string
	Path string

	STAC *STAC
	RAI  *RAI

	ExtraString  map[string]string
	ExtraInt64   map[string]int64
	ExtraFloat64 map[string]float64
	ExtraBool    map[string]bool
}

// Validate checks invariants that must hold at construction time: a
// non-empty id, an existing path, and (if STAC data is present) a
// non-inverted time range.
func (s *Sample) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", errs.ErrInvalidSample)
	}
	if _, err := os.Stat(s.Path); err != nil {
		return fmt.Errorf("%w: %s does not exist", errs.ErrInvalidSample, s.Path)
	}
	if s.STAC != nil && !s.STAC.TimeEnd.IsZero() && s.STAC.TimeStart.After(s.STAC.TimeEnd) {
		return fmt.Errorf("%w: time_start %s after time_end %s", errs.ErrInvalidSample, s.STAC.TimeStart, s.STAC.TimeEnd)
	}

	return nil
}

// Metadata is the flattened key/value view of a Sample used to build a
// footer row. ExportMetadata sets Length to the size of the file at Path
// and leaves Offset zero. The writer reads neither field: it takes each
// item's length from writer.Item.Length and computes offsets itself.
type Metadata struct {
	Path     string
	ID       string
	Offset   int64
	Length   int64
	Strings  map[string]string
	Int64s   map[string]int64
	Float64s map[string]float64
	Bools    map[string]bool
}

// ExportMetadata flattens s into a Metadata row, deriving stac:centroid
// via deriver if s.STAC carries raster parameters but no centroid.
// deriver may be nil when no such derivation is needed.
func (s *Sample) ExportMetadata(deriver CentroidDeriver) (Metadata, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %s does not exist", errs.ErrInvalidSample, s.Path)
	}

	m := Metadata{
		Path:     s.Path,
		ID:       s.ID,
		Length:   info.Size(),
		Strings:  map[string]string{},
		Int64s:   map[string]int64{},
		Float64s: map[string]float64{},
		Bools:    map[string]bool{},
	}

	if s.STAC != nil {
		st := s.STAC
		if st.Centroid == "" && st.hasRasterParams() {
			if deriver == nil {
				return Metadata{}, fmt.Errorf("%w: sample %s needs a centroid deriver", errs.ErrInvalidSample, s.ID)
			}
			centroid, err := deriver.Centroid(st.CRS, st.Geotransform, st.RasterShape)
			if err != nil {
				return Metadata{}, err
			}
			st.Centroid = centroid
		}

		m.Strings["stac:crs"] = st.CRS
		m.Strings["stac:centroid"] = st.Centroid
		m.Strings["stac:time_start"] = st.TimeStart.UTC().Format(time.RFC3339)
		if !st.TimeEnd.IsZero() {
			m.Strings["stac:time_end"] = st.TimeEnd.UTC().Format(time.RFC3339)
		}
	}

	if s.RAI != nil {
		addOptFloat(m.Float64s, "rai:populationdensity", s.RAI.PopulationDensity)
		addOptFloat(m.Float64s, "rai:female", s.RAI.Female)
		addOptFloat(m.Float64s, "rai:womenreproducibleage", s.RAI.WomenReproductiveAge)
		addOptFloat(m.Float64s, "rai:children", s.RAI.Children)
		addOptFloat(m.Float64s, "rai:youth", s.RAI.Youth)
		addOptFloat(m.Float64s, "rai:elderly", s.RAI.Elderly)
	}

	for k, v := range s.ExtraString {
		m.Strings[k] = v
	}
	for k, v := range s.ExtraInt64 {
		m.Int64s[k] = v
	}
	for k, v := range s.ExtraFloat64 {
		m.Float64s[k] = v
	}
	for k, v := range s.ExtraBool {
		m.Bools[k] = v
	}

	return m, nil
}

func addOptFloat(dst map[string]float64, key string, v *float64) {
	if v != nil {
		dst[key] = *v
	}
}

// Samples is an ordered collection of Sample sharing one declared
// data_format. ValidateAll checks every sample individually and rejects
// duplicate ids in one pass.
type Samples struct {
	Items      []*Sample
	FileFormat string
}

// ValidateAll validates every sample and enforces unique ids across the
// collection.
func (ss *Samples) ValidateAll() error {
	tracker := idtracker.New(len(ss.Items))

	for _, s := range ss.Items {
		if err := s.Validate(); err != nil {
			return err
		}
		if err := tracker.Add(s.ID); err != nil {
			return fmt.Errorf("%w: %s", err, s.ID)
		}
	}

	return nil
}
