// Package volume loads the XML description of a microscopy volume.
//
// A volume is a tree: Volume -> Block -> Section -> Channel, where each
// channel owns filters (each with an optional tile pyramid) and transforms.
// Every element carries a Path relative to its parent; full paths are
// resolved after loading and parent pointers are rebuilt so the tree can be
// walked in both directions.
package volume

import (
	"encoding/xml"
	"path/filepath"
	"strings"
)

// Volume is the root of the tree.
type Volume struct {
	XMLName xml.Name `xml:"Volume" yaml:"-"`
	Name    string   `xml:"Name,attr" yaml:"name"`

	// Path is the directory containing the volume XML. It is set by the
	// loader, not read from the file.
	Path string `xml:"-" yaml:"path"`

	Blocks     []*Block `xml:"Block" yaml:"blocks"`
	BlockLinks []Link   `xml:"Block_Link" yaml:"-"`

	// linked lists the files read while expanding *_Link elements.
	linked []string
}

// Block groups sections, usually one per imaging platform.
type Block struct {
	Name string `xml:"Name,attr" yaml:"name"`
	Path string `xml:"Path,attr" yaml:"path"`

	Sections     []*Section `xml:"Section" yaml:"sections"`
	SectionLinks []Link     `xml:"Section_Link" yaml:"-"`

	volume *Volume
}

// Section is one physical slice. Its Number is the Z level.
type Section struct {
	Number int    `xml:"Number,attr" yaml:"number"`
	Name   string `xml:"Name,attr,omitempty" yaml:"name,omitempty"`
	Path   string `xml:"Path,attr" yaml:"path"`

	Channels     []*Channel `xml:"Channel" yaml:"channels"`
	ChannelLinks []Link     `xml:"Channel_Link" yaml:"-"`

	block *Block
}

// Channel is one imaging modality of a section.
type Channel struct {
	Name  string `xml:"Name,attr" yaml:"name"`
	Path  string `xml:"Path,attr" yaml:"path"`
	Scale *Scale `xml:"Scale" yaml:"scale,omitempty"`

	Filters     []*Filter    `xml:"Filter" yaml:"filters"`
	FilterLinks []Link       `xml:"Filter_Link" yaml:"-"`
	Transforms  []*Transform `xml:"Transform" yaml:"transforms"`

	section *Section
}

// Scale gives the physical size of one pixel per axis.
type Scale struct {
	X *ScaleAxis `xml:"X" yaml:"x,omitempty"`
	Y *ScaleAxis `xml:"Y" yaml:"y,omitempty"`
	Z *ScaleAxis `xml:"Z" yaml:"z,omitempty"`
}

// ScaleAxis is the scale along one axis.
type ScaleAxis struct {
	UnitsOfMeasure string  `xml:"UnitsOfMeasure,attr" yaml:"units"`
	UnitsPerPixel  float64 `xml:"UnitsPerPixel,attr" yaml:"units_per_pixel"`
}

// Filter is a version of a channel's images with different intensity
// mapping but the same coordinate space.
type Filter struct {
	Name        string       `xml:"Name,attr" yaml:"name"`
	Path        string       `xml:"Path,attr" yaml:"path"`
	TilePyramid *TilePyramid `xml:"TilePyramid" yaml:"tile_pyramid,omitempty"`

	channel *Channel
}

// TilePyramid holds the tile images of a filter at several downsample levels.
type TilePyramid struct {
	Path           string   `xml:"Path,attr" yaml:"path"`
	ImageFormatExt string   `xml:"ImageFormatExt,attr" yaml:"image_format_ext"`
	NumberOfTiles  int      `xml:"NumberOfTiles,attr,omitempty" yaml:"number_of_tiles,omitempty"`
	Levels         []*Level `xml:"Level" yaml:"levels"`

	filter *Filter
}

// Level is one downsample level of a tile pyramid.
type Level struct {
	Downsample float64 `xml:"Downsample,attr" yaml:"downsample"`
	Path       string  `xml:"Path,attr" yaml:"path"`

	pyramid *TilePyramid
}

// Transform references a transform file of a channel, e.g. a .mosaic file.
type Transform struct {
	Name string `xml:"Name,attr" yaml:"name"`
	Path string `xml:"Path,attr" yaml:"path"`
	Type string `xml:"Type,attr,omitempty" yaml:"type,omitempty"`

	channel *Channel
}

// Link references a child element stored in its own VolumeData.xml
// inside the directory given by Path.
type Link struct {
	Name string `xml:"Name,attr"`
	Path string `xml:"Path,attr"`
}

// =============================================================================
// Parent accessors and paths
// =============================================================================

// Volume returns the owning volume.
func (b *Block) Volume() *Volume { return b.volume }

// FullPath returns the block directory.
func (b *Block) FullPath() string { return join(b.volume.Path, b.Path) }

// Block returns the owning block.
func (s *Section) Block() *Block { return s.block }

// FullPath returns the section directory.
func (s *Section) FullPath() string { return join(s.block.FullPath(), s.Path) }

// Section returns the owning section.
func (c *Channel) Section() *Section { return c.section }

// FullPath returns the channel directory.
func (c *Channel) FullPath() string { return join(c.section.FullPath(), c.Path) }

// Channel returns the owning channel.
func (f *Filter) Channel() *Channel { return f.channel }

// FullPath returns the filter directory.
func (f *Filter) FullPath() string { return join(f.channel.FullPath(), f.Path) }

// Filter returns the owning filter.
func (p *TilePyramid) Filter() *Filter { return p.filter }

// FullPath returns the pyramid directory.
func (p *TilePyramid) FullPath() string { return join(p.filter.FullPath(), p.Path) }

// Pyramid returns the owning tile pyramid.
func (l *Level) Pyramid() *TilePyramid { return l.pyramid }

// Number returns the downsample as an integer level number.
func (l *Level) Number() int { return int(l.Downsample) }

// FullPath returns the level directory.
func (l *Level) FullPath() string { return join(l.pyramid.FullPath(), l.Path) }

// RelativePath returns the level directory relative to the volume root.
func (l *Level) RelativePath() string {
	return relative(l.pyramid.filter.channel.section.block.volume.Path, l.FullPath())
}

// Channel returns the owning channel.
func (t *Transform) Channel() *Channel { return t.channel }

// FullPath returns the path of the transform file.
func (t *Transform) FullPath() string { return join(t.channel.FullPath(), t.Path) }

// Ext returns the transform file extension including the dot.
func (t *Transform) Ext() string { return strings.ToLower(filepath.Ext(t.Path)) }

func join(dir, p string) string {
	if p == "" {
		return dir
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

func relative(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return p
	}
	return rel
}

// link sets the parent pointers of every element. It is called after
// decoding from XML or from the cache.
func (v *Volume) link() {
	for _, b := range v.Blocks {
		b.volume = v
		for _, s := range b.Sections {
			s.block = b
			for _, c := range s.Channels {
				c.section = s
				for _, f := range c.Filters {
					f.channel = c
					if f.TilePyramid != nil {
						f.TilePyramid.filter = f
						for _, l := range f.TilePyramid.Levels {
							l.pyramid = f.TilePyramid
						}
					}
				}
				for _, t := range c.Transforms {
					t.channel = c
				}
			}
		}
	}
}
