package export

import (
	"time"

	"github.com/xtxerr/volimport/internal/geometry"
	"github.com/xtxerr/volimport/internal/store"
)

// DatasetRow represents a dataset in Parquet format.
type DatasetRow struct {
	Name        string `parquet:"name,zstd"`
	Path        string `parquet:"path,zstd"`
	CreatedAtMs int64  `parquet:"created_at_ms"`
	UpdatedAtMs int64  `parquet:"updated_at_ms"`
}

// ChannelRow represents a channel in Parquet format.
type ChannelRow struct {
	Dataset string `parquet:"dataset,zstd"`
	Name    string `parquet:"name,zstd"`
}

// FilterRow represents a filter in Parquet format.
type FilterRow struct {
	Dataset string `parquet:"dataset,zstd"`
	Channel string `parquet:"channel,zstd"`
	Name    string `parquet:"name,zstd"`
}

// BoxColumns is a bounding box flattened into nullable columns.
type BoxColumns struct {
	MinX *float64 `parquet:"min_x,optional"`
	MinY *float64 `parquet:"min_y,optional"`
	MinZ *float64 `parquet:"min_z,optional"`
	MaxX *float64 `parquet:"max_x,optional"`
	MaxY *float64 `parquet:"max_y,optional"`
	MaxZ *float64 `parquet:"max_z,optional"`
}

// CoordSpaceRow represents a coordinate space in Parquet format.
type CoordSpaceRow struct {
	Dataset     string     `parquet:"dataset,zstd"`
	Name        string     `parquet:"name,zstd"`
	Bounds      BoxColumns `parquet:"bounds"`
	XScale      *float64   `parquet:"x_scale,optional"`
	XUnits      *string    `parquet:"x_units,optional"`
	YScale      *float64   `parquet:"y_scale,optional"`
	YUnits      *string    `parquet:"y_units,optional"`
	ZScale      *float64   `parquet:"z_scale,optional"`
	ZUnits      *string    `parquet:"z_units,optional"`
	UpdatedAtMs int64      `parquet:"updated_at_ms"`
}

// Data2DRow represents a tile image in Parquet format.
type Data2DRow struct {
	Dataset      string `parquet:"dataset,zstd"`
	RelativePath string `parquet:"relative_path,zstd"`
	Name         string `parquet:"name,zstd"`
	Image        string `parquet:"image,zstd"`
	Channel      string `parquet:"channel,zstd"`
	Filter       string `parquet:"filter,zstd"`
	Level        int32  `parquet:"level"`
	CoordSpace   string `parquet:"coord_space,zstd"`
	Width        int32  `parquet:"width"`
	Height       int32  `parquet:"height"`
}

// MappingRow represents a mapping in Parquet format.
type MappingRow struct {
	Dataset     string     `parquet:"dataset,zstd"`
	SrcSpace    string     `parquet:"src_space,zstd"`
	SrcBounds   BoxColumns `parquet:"src_bounds"`
	DestSpace   string     `parquet:"dest_space,zstd"`
	DestBounds  BoxColumns `parquet:"dest_bounds"`
	Transform   string     `parquet:"transform,zstd"`
	UpdatedAtMs int64      `parquet:"updated_at_ms"`
}

// ImportRunRow represents an import run in Parquet format.
type ImportRunRow struct {
	ID           string `parquet:"id"`
	Dataset      string `parquet:"dataset,zstd"`
	VolumePath   string `parquet:"volume_path,zstd"`
	Sections     string `parquet:"sections,optional,zstd"`
	Policy       string `parquet:"policy,optional"`
	DryRun       bool   `parquet:"dry_run"`
	Created      int64  `parquet:"created"`
	Updated      int64  `parquet:"updated"`
	Skipped      int64  `parquet:"skipped"`
	Warnings     int64  `parquet:"warnings"`
	Error        string `parquet:"error,optional,zstd"`
	StartedAtMs  int64  `parquet:"started_at_ms"`
	FinishedAtMs *int64 `parquet:"finished_at_ms,optional"`
}

// =============================================================================
// Conversion
// =============================================================================

// DatasetToRow converts a store dataset.
func DatasetToRow(d *store.Dataset) DatasetRow {
	return DatasetRow{
		Name:        d.Name,
		Path:        d.Path,
		CreatedAtMs: millis(d.CreatedAt),
		UpdatedAtMs: millis(d.UpdatedAt),
	}
}

// ChannelToRow converts a store channel.
func ChannelToRow(c *store.Channel) ChannelRow {
	return ChannelRow{Dataset: c.Dataset, Name: c.Name}
}

// FilterToRow converts a store filter.
func FilterToRow(f *store.Filter) FilterRow {
	return FilterRow{Dataset: f.Dataset, Channel: f.Channel, Name: f.Name}
}

// BoxToColumns flattens b. A nil box yields all-null columns.
func BoxToColumns(b *geometry.Box) BoxColumns {
	if b == nil {
		return BoxColumns{}
	}
	return BoxColumns{
		MinX: ptr(b.MinX), MinY: ptr(b.MinY), MinZ: copyPtr(b.MinZ),
		MaxX: ptr(b.MaxX), MaxY: ptr(b.MaxY), MaxZ: copyPtr(b.MaxZ),
	}
}

// Box restores the bounding box. It returns nil when the columns are null.
func (c BoxColumns) Box() *geometry.Box {
	if c.MinX == nil || c.MinY == nil || c.MaxX == nil || c.MaxY == nil {
		return nil
	}
	return &geometry.Box{
		MinX: *c.MinX, MinY: *c.MinY, MinZ: copyPtr(c.MinZ),
		MaxX: *c.MaxX, MaxY: *c.MaxY, MaxZ: copyPtr(c.MaxZ),
	}
}

// CoordSpaceToRow converts a store coordinate space.
func CoordSpaceToRow(cs *store.CoordSpace) CoordSpaceRow {
	row := CoordSpaceRow{
		Dataset:     cs.Dataset,
		Name:        cs.Name,
		Bounds:      BoxToColumns(cs.Bounds),
		UpdatedAtMs: millis(cs.UpdatedAt),
	}
	row.XScale, row.XUnits = scaleColumns(cs.XScale)
	row.YScale, row.YUnits = scaleColumns(cs.YScale)
	row.ZScale, row.ZUnits = scaleColumns(cs.ZScale)
	return row
}

// Data2DToRow converts a store tile image.
func Data2DToRow(d *store.Data2D) Data2DRow {
	return Data2DRow{
		Dataset:      d.Dataset,
		RelativePath: d.RelativePath,
		Name:         d.Name,
		Image:        d.Image,
		Channel:      d.Channel,
		Filter:       d.Filter,
		Level:        int32(d.Level),
		CoordSpace:   d.CoordSpace,
		Width:        int32(d.Width),
		Height:       int32(d.Height),
	}
}

// MappingToRow converts a store mapping.
func MappingToRow(m *store.Mapping2D) MappingRow {
	return MappingRow{
		Dataset:     m.Dataset,
		SrcSpace:    m.SrcSpace,
		SrcBounds:   BoxToColumns(m.SrcBounds),
		DestSpace:   m.DestSpace,
		DestBounds:  BoxToColumns(m.DestBounds),
		Transform:   m.Transform,
		UpdatedAtMs: millis(m.UpdatedAt),
	}
}

// ImportRunToRow converts a store import run.
func ImportRunToRow(r *store.ImportRun) ImportRunRow {
	row := ImportRunRow{
		ID:          r.ID,
		Dataset:     r.Dataset,
		VolumePath:  r.VolumePath,
		Sections:    r.Sections,
		Policy:      r.Policy,
		DryRun:      r.DryRun,
		Created:     int64(r.Created),
		Updated:     int64(r.Updated),
		Skipped:     int64(r.Skipped),
		Warnings:    int64(r.Warnings),
		Error:       r.Error,
		StartedAtMs: millis(r.StartedAt),
	}
	if r.FinishedAt != nil {
		row.FinishedAtMs = ptr(r.FinishedAt.UnixMilli())
	}
	return row
}

func scaleColumns(s *store.Scale) (*float64, *string) {
	if s == nil {
		return nil, nil
	}
	return ptr(s.Value), ptr(s.Units)
}

func ptr[T any](v T) *T {
	return &v
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
