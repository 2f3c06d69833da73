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
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
)

var Module = fx.Module("shares",
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

type sharesHandler struct {
	logger *logging.Logger
	log    *slog.Logger
	nc     *nats.Conn
	auth   auth.Auth
}

func New(p Params) Result {
	return Result{
		Handler: &sharesHandler{
			logger: p.Log,
			log:    p.Log.GetLogger("shares"),
			nc:     p.Nc,
			auth:   p.Auth,
		},
	}
}

// createShareRequest carries the plain text password separately, it must
// never end up inside the share prototype itself.
type createShareRequest struct {
	Share    *shares.SharePrototype `json:"share"`
	Password string                 `json:"password"`
}

func (h *sharesHandler) Setup(app *gin.Engine, apiGroup *gin.RouterGroup) {
	apiGroup.GET("shares", func(ctx *gin.Context) {
		owner := h.auth.GetUserId(ctx)

		req := shares.ShareCrudRequest{
			Operation: "READ",
			Share:     entities.MakePrototype(&shares.SharePrototype{}),
		}
		req.Share.Owner.Set(owner)

		res := shares.ShareCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}

		ctx.JSON(http.StatusOK, res)
	})

	apiGroup.GET("shares/:shareId", func(ctx *gin.Context) {
		shareId := ctx.Param("shareId")
		owner := h.auth.GetUserId(ctx)

		req := shares.ShareCrudRequest{
			Operation: "READ",
			Share:     entities.MakePrototype(&shares.SharePrototype{}),
		}
		req.Share.ShareID.Set(shareId)
		req.Share.Owner.Set(owner)

		res := shares.ShareCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}
		if len(res.Share) == 0 {
			ctx.AbortWithStatus(http.StatusNotFound)
			return
		}

		ctx.JSON(http.StatusOK, res)
	})

	apiGroup.POST("shares", func(ctx *gin.Context) {
		body := createShareRequest{
			Share: entities.MakePrototype(&shares.SharePrototype{}),
		}
		err := ctx.BindJSON(&body)
		if err != nil {
			h.log.Error("While creating share: error reading request", "error", err)
			return
		}

		owner := h.auth.GetUserId(ctx)
		body.Share.Owner.Set(owner)

		req := shares.ShareCrudRequest{
			Operation: "CREATE",
			Share:     body.Share,
			Password:  body.Password,
		}
		res := shares.ShareCrudResponse{}
		err = messaging.Request(ctx.Request.Context(), h.nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
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

	apiGroup.PUT("shares/:shareId", func(ctx *gin.Context) {
		shareId := ctx.Param("shareId")

		body := createShareRequest{
			Share: entities.MakePrototype(&shares.SharePrototype{}),
		}
		err := ctx.BindJSON(&body)
		if err != nil {
			h.log.Error("While updating share: error reading request", "error", err)
			return
		}

		owner := h.auth.GetUserId(ctx)
		body.Share.Owner.Set(owner)
		body.Share.ShareID.Set(shareId)

		req := shares.ShareCrudRequest{
			Operation: "UPDATE",
			Share:     body.Share,
			Password:  body.Password,
		}
		res := shares.ShareCrudResponse{}
		err = messaging.Request(ctx.Request.Context(), h.nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}

		ctx.JSON(http.StatusOK, res)
	})

	apiGroup.POST("shares/:shareId/regenerate", func(ctx *gin.Context) {
		shareId := ctx.Param("shareId")
		owner := h.auth.GetUserId(ctx)

		share := entities.MakePrototype(&shares.SharePrototype{})
		share.ShareID.Set(shareId)
		share.Owner.Set(owner)

		req := shares.ShareCrudRequest{
			Operation: "REGENERATE_LINK",
			Share:     share,
		}
		res := shares.ShareCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}

		ctx.JSON(http.StatusOK, res)
	})

	apiGroup.DELETE("shares/:shareId", func(ctx *gin.Context) {
		shareId := ctx.Param("shareId")
		owner := h.auth.GetUserId(ctx)

		share := entities.MakePrototype(&shares.SharePrototype{})
		share.ShareID.Set(shareId)
		share.Owner.Set(owner)

		req := shares.ShareCrudRequest{
			Operation: "DELETE",
			Share:     share,
		}
		res := shares.ShareCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}

		ctx.JSON(http.StatusOK, res)
	})
}
