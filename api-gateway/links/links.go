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

// Package links serves the public share-link routes. They are reachable
// without a login, the access service decides what a token may do.
package links

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Marwan-Gama/Storify-sub001/access"
	gateway "github.com/Marwan-Gama/Storify-sub001/api-gateway/gateway-handler"
	"github.com/Marwan-Gama/Storify-sub001/items/items"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
)

var Module = fx.Module("links",
	fx.Provide(
		New,
	),
)

type Params struct {
	fx.In

	Log *logging.Logger
	Nc  *nats.Conn
}

type Result struct {
	fx.Out

	Handler gateway.GatewayHandler `group:"gatewayhandlers"`
}

type linksHandler struct {
	log *slog.Logger
	nc  *nats.Conn
}

func New(p Params) Result {
	return Result{
		Handler: &linksHandler{
			log: p.Log.GetLogger("links"),
			nc:  p.Nc,
		},
	}
}

type linkResponse struct {
	Item *items.Item `json:"item"`
	// what the link grants, so the web app can show or hide actions
	Permission    shares.Permission `json:"permission"`
	AllowDownload bool              `json:"allowDownload"`
	AllowEdit     bool              `json:"allowEdit"`
}

func (h *linksHandler) Setup(app *gin.Engine, apiGroup *gin.RouterGroup) {
	app.GET("/s/:token", func(ctx *gin.Context) {
		h.serve(ctx, shares.PermissionView)
	})

	app.GET("/s/:token/download", func(ctx *gin.Context) {
		h.serve(ctx, shares.PermissionDownload)
	})
}

func (h *linksHandler) serve(ctx *gin.Context, permission shares.Permission) {
	token := ctx.Param("token")
	password := ctx.GetHeader("X-Share-Password")
	if password == "" {
		password = ctx.Query("password")
	}

	// the token identifies the item
	resolveReq := shares.ShareResolveRequest{PublicLink: token}
	resolveRes := shares.ShareResolveResponse{}
	err := messaging.Request(ctx.Request.Context(), h.nc, shares.ShareResolveTopic, messaging.Json(&resolveReq), messaging.Json(&resolveRes))
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if resolveRes.Error != "" {
		ctx.AbortWithError(http.StatusInternalServerError, errors.New(resolveRes.Error))
		return
	}
	if resolveRes.Share == nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	share := resolveRes.Share

	checkReq := access.AccessCheckRequest{}
	checkReq.ItemID = share.ItemID
	checkReq.ItemType = share.ItemType
	checkReq.PublicLink = token
	checkReq.Password = password
	checkReq.Permission = permission

	checkRes := access.AccessCheckResponse{}
	err = messaging.Request(ctx.Request.Context(), h.nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if checkRes.Error != "" {
		ctx.AbortWithError(http.StatusInternalServerError, errors.New(checkRes.Error))
		return
	}
	if !checkRes.Allowed {
		ctx.AbortWithStatusJSON(gateway.StatusForReason(checkRes.Reason), gin.H{
			"reason": checkRes.Reason,
		})
		return
	}

	itemReq := items.ItemResolveRequest{
		ItemID:   share.ItemID,
		ItemType: share.ItemType,
	}
	itemRes := items.ItemResolveResponse{}
	err = messaging.Request(ctx.Request.Context(), h.nc, items.ItemResolveTopic, messaging.Json(&itemReq), messaging.Json(&itemRes))
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if itemRes.Item == nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	ctx.JSON(http.StatusOK, linkResponse{
		Item:          itemRes.Item,
		Permission:    share.Permission,
		AllowDownload: share.AllowDownload,
		AllowEdit:     share.AllowEdit,
	})
}
