package volume

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/errors"
)

// LoadXML reads a volume description and expands every *_Link element.
// The returned volume's Path is the absolute directory of the file.
func LoadXML(path string) (*Volume, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}

	v, err := decodeFile[Volume](abs)
	if err != nil {
		return nil, err
	}
	v.Path = filepath.Dir(abs)

	if err := v.expandLinks(); err != nil {
		return nil, err
	}
	v.link()

	return v, nil
}

// Parse decodes a volume from raw XML rooted at dir. Links are expanded
// relative to dir.
func Parse(data []byte, dir string) (*Volume, error) {
	var v Volume
	if err := xml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidVolume, err)
	}
	v.Path = dir

	if err := v.expandLinks(); err != nil {
		return nil, err
	}
	v.link()

	return &v, nil
}

func decodeFile[T any](path string) (*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	var elem T
	if err := xml.NewDecoder(f).Decode(&elem); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrInvalidVolume, path, err)
	}
	return &elem, nil
}

// readLink loads the element referenced by a link and appends the file
// it came from to files. A linked element without its own Path takes the
// link's Path.
func readLink[T any](files *[]string, dir string, l Link, setPath func(*T, string), path func(*T) string) (*T, error) {
	file := filepath.Join(dir, l.Path, config.DefaultVolumeFile)
	elem, err := decodeFile[T](file)
	if err != nil {
		return nil, err
	}
	*files = append(*files, file)
	if path(elem) == "" {
		setPath(elem, l.Path)
	}
	return elem, nil
}

func (v *Volume) expandLinks() error {
	v.linked = nil
	for _, l := range v.BlockLinks {
		b, err := readLink(&v.linked, v.Path, l,
			func(b *Block, p string) { b.Path = p },
			func(b *Block) string { return b.Path })
		if err != nil {
			return errors.Wrapf(err, "block link %s", l.Path)
		}
		v.Blocks = append(v.Blocks, b)
	}
	v.BlockLinks = nil

	for _, b := range v.Blocks {
		bdir := join(v.Path, b.Path)
		for _, l := range b.SectionLinks {
			s, err := readLink(&v.linked, bdir, l,
				func(s *Section, p string) { s.Path = p },
				func(s *Section) string { return s.Path })
			if err != nil {
				return errors.Wrapf(err, "section link %s", l.Path)
			}
			b.Sections = append(b.Sections, s)
		}
		b.SectionLinks = nil

		for _, s := range b.Sections {
			sdir := join(bdir, s.Path)
			for _, l := range s.ChannelLinks {
				c, err := readLink(&v.linked, sdir, l,
					func(c *Channel, p string) { c.Path = p },
					func(c *Channel) string { return c.Path })
				if err != nil {
					return errors.Wrapf(err, "channel link %s", l.Path)
				}
				s.Channels = append(s.Channels, c)
			}
			s.ChannelLinks = nil

			for _, c := range s.Channels {
				cdir := join(sdir, c.Path)
				for _, l := range c.FilterLinks {
					f, err := readLink(&v.linked, cdir, l,
						func(f *Filter, p string) { f.Path = p },
						func(f *Filter) string { return f.Path })
					if err != nil {
						return errors.Wrapf(err, "filter link %s", l.Path)
					}
					c.Filters = append(c.Filters, f)
				}
				c.FilterLinks = nil
			}
		}
	}

	return nil
}
