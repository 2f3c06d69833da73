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

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Marwan-Gama/Storify-sub001/api-gateway/auth"
	gateway "github.com/Marwan-Gama/Storify-sub001/api-gateway/gateway-handler"
	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/users/users"
)

var Module = fx.Module("users",
	fx.Provide(
		New,
	),
)

type Params struct {
	fx.In

	Log  *logging.Logger
	Nc   *nats.Conn
	Auth auth.Auth
}

type Result struct {
	fx.Out

	Handler gateway.GatewayHandler `group:"gatewayhandlers"`
}

type usersHandler struct {
	log  *slog.Logger
	nc   *nats.Conn
	auth auth.Auth
}

func New(p Params) Result {
	return Result{
		Handler: &usersHandler{
			log:  p.Log.GetLogger("users"),
			nc:   p.Nc,
			auth: p.Auth,
		},
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *usersHandler) Setup(app *gin.Engine, apiGroup *gin.RouterGroup) {
	// registration happens before a login exists
	app.POST("/auth/register", func(ctx *gin.Context) {
		body := registerRequest{}
		if err := ctx.BindJSON(&body); err != nil {
			h.log.Error("While registering user: error reading request", "error", err)
			return
		}

		req := users.UserCrudRequest{
			Operation: "CREATE",
			User:      entities.MakePrototype(&users.UserPrototype{}),
			Password:  body.Password,
		}
		req.User.Email.Set(body.Email)
		req.User.Name.Set(body.Name)

		res := users.UserCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, users.UserCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}

		ctx.JSON(http.StatusCreated, res)
	})

	apiGroup.GET("users/me", func(ctx *gin.Context) {
		userId := h.auth.GetUserId(ctx)

		req := users.UserCrudRequest{
			Operation: "READ",
			User:      entities.MakePrototype(&users.UserPrototype{}),
		}
		req.User.UserID.Set(userId)

		res := users.UserCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, users.UserCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}
		if len(res.Users) == 0 {
			ctx.AbortWithStatus(http.StatusNotFound)
			return
		}

		ctx.JSON(http.StatusOK, res.Users[0])
	})
}
