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

type ShareResolveRequest struct {
	// exactly one of the two is set
	ShareID    string `json:"shareId"`
	PublicLink string `json:"publicLink"`
}

type ShareResolveResponse struct {
	Error string `json:"error"`
	// nil indicates "not found"
	Share *Share `json:"share"`
}

type ShareCrudRequest struct {
	Operation string          `json:"operation"`
	Share     *SharePrototype `json:"share"`

	// plain text link password for CREATE and UPDATE, hashed before persisting
	Password string `json:"password"`
}

type ShareCrudResponse struct {
	Error  string  `json:"error"`
	Reason string  `json:"reason"`
	Share  []Share `json:"share"`
}
