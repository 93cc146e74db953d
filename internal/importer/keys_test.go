package importer

import (
	"testing"

	"github.com/xtxerr/volimport/internal/errors"
)

func TestCoordSpaceName(t *testing.T) {
	tests := []struct {
		section int
		channel string
		name    string
		want    string
	}{
		{691, "TEM", "Grid", "0691.TEM.Grid"},
		{7, "TEM", TileSpaceName(12), "0007.TEM.Tile12"},
		{12345, "LM", "Stage", "12345.LM.Stage"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := CoordSpaceName(tt.section, tt.channel, tt.name); got != tt.want {
				t.Errorf("CoordSpaceName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTileNumber(t *testing.T) {
	tests := []struct {
		file    string
		want    int
		wantErr bool
	}{
		{"017.png", 17, false},
		{"000.tif", 0, false},
		{"/data/TEM/0691/001/123.png", 123, false},
		{"42", 42, false},
		{"overview.png", 0, true},
		{"-1.png", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			got, err := TileNumber(tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TileNumber(%q) error = %v, wantErr %v", tt.file, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrInvalidTileName) || !errors.IsSkippable(err) {
					t.Errorf("error %v is not a skippable tile name error", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("TileNumber(%q) = %d, want %d", tt.file, got, tt.want)
			}
		})
	}
}
