package volume

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/logging"
)

// Cache keeps parsed volume trees on disk as snappy compressed YAML.
// An entry is stale once the size or modification time of its source
// XML, or of any file pulled in through a link, changes.
type Cache struct {
	dir   string
	group singleflight.Group
	log   *slog.Logger
}

type cacheEntry struct {
	Source  string      `yaml:"source"`
	Size    int64       `yaml:"size"`
	ModTime int64       `yaml:"mod_time"`
	Linked  []fileStamp `yaml:"linked,omitempty"`
	Volume  *Volume     `yaml:"volume"`
}

type fileStamp struct {
	Path    string `yaml:"path"`
	Size    int64  `yaml:"size"`
	ModTime int64  `yaml:"mod_time"`
}

func stampFiles(paths []string) ([]fileStamp, error) {
	stamps := make([]fileStamp, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		stamps = append(stamps, fileStamp{Path: p, Size: info.Size(), ModTime: info.ModTime().UnixNano()})
	}
	return stamps, nil
}

// changed reports the first linked file whose size or modification time
// differs from its stamp, or that can no longer be read.
func changed(stamps []fileStamp) (string, bool) {
	for _, st := range stamps {
		info, err := os.Stat(st.Path)
		if err != nil || info.Size() != st.Size || info.ModTime().UnixNano() != st.ModTime {
			return st.Path, true
		}
	}
	return "", false
}

// NewCache returns a cache writing into dir. With an empty dir each entry
// is written next to its volume XML.
func NewCache(dir string) *Cache {
	return &Cache{
		dir: dir,
		log: logging.Component("volume.cache"),
	}
}

// Path returns the cache file used for the volume at xmlPath.
func (c *Cache) Path(xmlPath string) string {
	abs, err := filepath.Abs(xmlPath)
	if err != nil {
		abs = xmlPath
	}
	if c.dir == "" {
		return filepath.Join(filepath.Dir(abs), config.DefaultCacheFile)
	}

	h := fnv.New64a()
	h.Write([]byte(abs))
	return filepath.Join(c.dir, fmt.Sprintf("%016x.cache", h.Sum64()))
}

// Load returns the cached volume for xmlPath, parsing and storing it when
// the cache is missing, unreadable or stale. Concurrent loads of the same
// path share one parse.
func (c *Cache) Load(xmlPath string) (*Volume, error) {
	abs, err := filepath.Abs(xmlPath)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", xmlPath)
	}

	result, err, _ := c.group.Do(abs, func() (interface{}, error) {
		return c.load(abs)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Volume), nil
}

func (c *Cache) load(xmlPath string) (*Volume, error) {
	info, err := os.Stat(xmlPath)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", xmlPath)
	}

	if v, ok := c.read(xmlPath, info); ok {
		return v, nil
	}

	v, err := LoadXML(xmlPath)
	if err != nil {
		return nil, err
	}

	if err := c.write(xmlPath, info, v); err != nil {
		// A failed write only costs a reparse next time.
		c.log.Warn("failed to write volume cache", "path", c.Path(xmlPath), "error", err)
	}
	return v, nil
}

// Store writes v as the cache entry for xmlPath.
func (c *Cache) Store(xmlPath string, v *Volume) error {
	abs, err := filepath.Abs(xmlPath)
	if err != nil {
		return errors.Wrapf(err, "resolve %s", xmlPath)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errors.Wrapf(err, "stat %s", abs)
	}
	return c.write(abs, info, v)
}

// Clear removes the cache entry for xmlPath. A missing entry is not an error.
func (c *Cache) Clear(xmlPath string) error {
	path := c.Path(xmlPath)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", errors.ErrCache, path, err)
	}
	return nil
}

func (c *Cache) read(xmlPath string, info os.FileInfo) (*Volume, bool) {
	path := c.Path(xmlPath)

	compressed, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("unable to read volume cache", "path", path, "error", err)
		}
		return nil, false
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		c.log.Warn("corrupt volume cache", "path", path, "error", err)
		return nil, false
	}

	var entry cacheEntry
	if err := yaml.Unmarshal(data, &entry); err != nil || entry.Volume == nil {
		c.log.Warn("corrupt volume cache", "path", path, "error", err)
		return nil, false
	}

	if entry.Source != xmlPath || entry.Size != info.Size() || entry.ModTime != info.ModTime().UnixNano() {
		c.log.Debug("volume cache is stale", "path", path)
		return nil, false
	}
	if file, ok := changed(entry.Linked); ok {
		c.log.Debug("volume cache is stale", "path", path, "linked", file)
		return nil, false
	}

	v := entry.Volume
	for _, st := range entry.Linked {
		v.linked = append(v.linked, st.Path)
	}
	v.Path = filepath.Dir(xmlPath)
	v.link()

	c.log.Debug("loaded volume from cache", "path", path, "volume", v.Name)
	return v, true
}

func (c *Cache) write(xmlPath string, info os.FileInfo, v *Volume) error {
	linked, err := stampFiles(v.linked)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrCache, err)
	}
	entry := cacheEntry{
		Source:  xmlPath,
		Size:    info.Size(),
		ModTime: info.ModTime().UnixNano(),
		Linked:  linked,
		Volume:  v,
	}

	data, err := yaml.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", errors.ErrCache, err)
	}

	path := c.Path(xmlPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrCache, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, snappy.Encode(nil, data), 0o644); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrCache, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", errors.ErrCache, err)
	}

	c.log.Debug("saved volume cache", "path", path, "volume", v.Name)
	return nil
}
