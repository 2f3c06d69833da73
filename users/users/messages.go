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

package users

type UserCrudRequest struct {
	Operation string         `json:"operation"`
	User      *UserPrototype `json:"user"`

	// plain text password for CREATE and UPDATE, hashed before persisting
	Password string `json:"password"`
	// byte delta for ADJUST_STORAGE, may be negative
	Delta int64 `json:"delta"`
}

type UserCrudResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
	Users  []User `json:"users"`
}

type UserAuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserAuthResponse struct {
	Error string `json:"error"`
	// empty when the credentials were not accepted
	UserID string `json:"userId"`
	Role   string `json:"role"`
}
