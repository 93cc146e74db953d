package importer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xtxerr/volimport/config"
	"github.com/xtxerr/volimport/internal/errors"
	"github.com/xtxerr/volimport/internal/store"
	"github.com/xtxerr/volimport/internal/volume"
)

// CoordSpaceName returns the canonical coordinate space name
// "section.channel.name" with the section zero padded.
func CoordSpaceName(section int, channel, name string) string {
	return fmt.Sprintf("%0*d.%s.%s", config.DefaultSectionDigits, section, channel, name)
}

// TileSpaceName returns the name component of a tile coordinate space.
func TileSpaceName(number int) string {
	return "Tile" + strconv.Itoa(number)
}

// TileNumber parses the tile number from an image file name such as
// "017.png" or "017".
func TileNumber(file string) (int, error) {
	base := filepath.Base(file)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	n, err := strconv.Atoi(stem)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidTileName, base)
	}
	return n, nil
}

// TileCoordSpace returns the coordinate space name of tile file within
// the channel of a section.
func TileCoordSpace(c *volume.Channel, file string) (string, error) {
	n, err := TileNumber(file)
	if err != nil {
		return "", err
	}
	return CoordSpaceName(c.Section().Number, c.Name, TileSpaceName(n)), nil
}

// channelScales converts the X and Y scale of a channel. Z is never set
// on tile or mosaic spaces.
func channelScales(c *volume.Channel) (x, y *store.Scale) {
	if c.Scale == nil {
		return nil, nil
	}
	return toScale(c.Scale.X), toScale(c.Scale.Y)
}

func toScale(a *volume.ScaleAxis) *store.Scale {
	if a == nil {
		return nil
	}
	return &store.Scale{Value: a.UnitsPerPixel, Units: a.UnitsOfMeasure}
}
