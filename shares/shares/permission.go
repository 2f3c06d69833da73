// Copyright © 2025 Marwan Gama

// This file is part of Storify <https://github.com/Marwan-Gama/Storify>.

// Storify is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License
// as published by the Free Software Foundation,
// either version 3 of the License, or (at your option)
// any later version.

// Storify is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public License
// along with Storify.  If not, see <http://www.gnu.org/licenses/>.

package shares

// Permission is the strength of a grant. Permissions form a total order:
// view < edit < download. A stronger permission always implies the weaker
// ones, a share cannot grant edit without also granting view.
type Permission string

const (
	PermissionView     Permission = "view"
	PermissionEdit     Permission = "edit"
	PermissionDownload Permission = "download"
)

func (p Permission) Rank() int {
	switch p {
	case PermissionView:
		return 1
	case PermissionEdit:
		return 2
	case PermissionDownload:
		return 3
	}
	return 0
}

func (p Permission) Valid() bool {
	return p.Rank() > 0
}

// Covers reports whether a grant of p satisfies a request for required.
func (p Permission) Covers(required Permission) bool {
	return p.Rank() >= required.Rank()
}
