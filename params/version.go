// Copyright 2025 The bitroute Authors
// This file is part of the bitroute library.
//
// The bitroute library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bitroute library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bitroute library. If not, see <http://www.gnu.org/licenses/>.

// Package params carries version metadata.
package params

import "fmt"

const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// Version holds the textual version string.
var Version = fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch)
