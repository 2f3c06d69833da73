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

type ItemResolveRequest struct {
	ItemID   string   `json:"itemId"`
	ItemType ItemType `json:"itemType"`
	// when set, soft-deleted items resolve as well
	IncludeDeleted bool `json:"includeDeleted"`
}

type ItemResolveResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	// nil when the id does not exist for that type
	Item *Item `json:"item"`
}

type ItemCrudRequest struct {
	Operation string           `json:"operation"`
	File      *FilePrototype   `json:"file"`
	Folder    *FolderPrototype `json:"folder"`

	// MOVE, MARK_DELETED and RESTORE address the item directly
	ItemID      string   `json:"itemId"`
	ItemType    ItemType `json:"itemType"`
	NewParentID string   `json:"newParentId"`
}

type ItemCrudResponse struct {
	Error   string   `json:"error"`
	Reason  string   `json:"reason"`
	Files   []File   `json:"files"`
	Folders []Folder `json:"folders"`
}
