// Copyright (C) 2024 The hsp authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/hspdev/hsp/internal/raster"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Inpaint != "idw" || cfg.InpaintRadius != 3 {
		t.Errorf("defaults %+v", cfg)
	}
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "hsp.yaml")
	doc := "workers: 4\ninpaint: neighborhood\npreview: true\npreview_band: 42\n"
	if err := os.WriteFile(p, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %s", err.Error())
	}
	if cfg.Workers != 4 || cfg.Inpaint != "neighborhood" || !cfg.Preview || cfg.PreviewBand != 42 {
		t.Errorf("loaded %+v", cfg)
	}
	if cfg.InpaintRadius != 3 { // untouched default
		t.Errorf("radius=%f; want default 3", cfg.InpaintRadius)
	}
}

func TestLoadBadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(p, []byte("workers: [unclosed\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %s", err.Error())
	}
	if _, err := Load(p); !errors.Is(err, raster.ErrParseFailed) {
		t.Errorf("bad yaml: %v; want ParseFailed", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); !errors.Is(err, raster.ErrOpenFailed) {
		t.Errorf("missing file: %v; want OpenFailed", err)
	}
}
