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

package items

import (
	"context"
	"errors"
	"fmt"
)

// bound on the parent walk, protects against corrupted parent links
const maxTreeDepth = 256

var ErrCycle = errors.New("move would create a cycle")
var ErrParentNotFound = errors.New("target folder does not exist")

type folderLookup func(ctx context.Context, folderId string) (*Folder, error)

// checkMove verifies that moving the given folder under newParent keeps the
// tree acyclic. It walks from newParent up to the root and fails with
// ErrCycle when it passes through the folder being moved.
func checkMove(ctx context.Context, folderId string, newParentId string, lookup folderLookup) error {
	current := newParentId
	for depth := 0; current != ""; depth++ {
		if depth >= maxTreeDepth {
			return fmt.Errorf("folder tree deeper than %d levels", maxTreeDepth)
		}
		if current == folderId {
			return ErrCycle
		}
		parent, err := lookup(ctx, current)
		if err != nil {
			return err
		}
		if parent == nil {
			return ErrParentNotFound
		}
		current = parent.ParentID
	}
	return nil
}
