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

package raster

import (
	"github.com/pkg/errors"
)

// Error kinds surfaced by the raster adapter and the layers built on it.
// Callers match with errors.Is; wrapped messages carry the detail.
var (
	ErrOpenFailed      = errors.New("open failed")
	ErrIoFailed        = errors.New("i/o failed")
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrNotTraversed    = errors.New("not traversed")
	ErrOutOfRange      = errors.New("out of range")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrParseFailed     = errors.New("parse failed")
	ErrFormatUnknown   = errors.New("format unknown")
	ErrInvalidArgument = errors.New("invalid argument")
)

// wrapf attaches a formatted message to a sentinel kind, keeping the kind
// matchable through errors.Is.
func wrapf(kind error, format string, args ...interface{}) error {
	return errors.WithMessagef(kind, format, args...)
}
