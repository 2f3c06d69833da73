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

package auth

import "github.com/gin-gonic/gin"

type noAuth struct {
	user string
}

func (a *noAuth) AuthMiddleware() func(*gin.Context) {
	return func(ctx *gin.Context) {
		/* no-op */
	}
}

func (a *noAuth) Setup(app *gin.Engine, apiGroup *gin.RouterGroup) {
	/* no-op */
}

func (a *noAuth) GetUserId(ctx *gin.Context) string {
	if a.user != "" {
		return a.user
	}
	return "anonymous"
}
