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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/Marwan-Gama/Storify-sub001/access"
	"github.com/Marwan-Gama/Storify-sub001/api-gateway/auth"
	gateway "github.com/Marwan-Gama/Storify-sub001/api-gateway/gateway-handler"
	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/Marwan-Gama/Storify-sub001/items/items"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
	"github.com/Marwan-Gama/Storify-sub001/users/users"
)

var Module = fx.Module("items",
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

type itemsHandler struct {
	log  *slog.Logger
	nc   *nats.Conn
	auth auth.Auth
}

func New(p Params) Result {
	return Result{
		Handler: &itemsHandler{
			log:  p.Log.GetLogger("items"),
			nc:   p.Nc,
			auth: p.Auth,
		},
	}
}

type moveRequest struct {
	NewParentID string `json:"newParentId"`
}

func (h *itemsHandler) Setup(app *gin.Engine, apiGroup *gin.RouterGroup) {
	apiGroup.GET("items", func(ctx *gin.Context) {
		owner := h.auth.GetUserId(ctx)

		req := items.ItemCrudRequest{
			Operation: "READ",
			File:      entities.MakePrototype(&items.FilePrototype{}),
			Folder:    entities.MakePrototype(&items.FolderPrototype{}),
		}
		req.File.Owner.Set(owner)
		req.Folder.Owner.Set(owner)
		if parent, ok := ctx.GetQuery("parent"); ok {
			req.File.ParentID.Set(parent)
			req.Folder.ParentID.Set(parent)
		}

		res := items.ItemCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, items.ItemCrudTopic, messaging.Json(&req), messaging.Json(&res))
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

	// shared items are readable by non-owners, the access service decides
	apiGroup.GET("items/:type/:itemId", func(ctx *gin.Context) {
		itemType := items.ItemType(ctx.Param("type"))
		itemId := ctx.Param("itemId")
		userId := h.auth.GetUserId(ctx)

		permission := shares.PermissionView
		if p, ok := ctx.GetQuery("permission"); ok {
			permission = shares.Permission(p)
		}

		checkReq := access.AccessCheckRequest{}
		checkReq.ItemID = itemId
		checkReq.ItemType = itemType
		checkReq.UserID = userId
		checkReq.Permission = permission

		checkRes := access.AccessCheckResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, access.AccessCheckTopic, messaging.Json(&checkReq), messaging.Json(&checkRes))
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
			ItemID:   itemId,
			ItemType: itemType,
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

		ctx.JSON(http.StatusOK, itemRes)
	})

	apiGroup.POST("files", func(ctx *gin.Context) {
		file := entities.MakePrototype(&items.FilePrototype{})
		if err := ctx.BindJSON(file); err != nil {
			h.log.Error("While creating file: error reading request", "error", err)
			return
		}

		owner := h.auth.GetUserId(ctx)
		file.Owner.Set(owner)

		req := items.ItemCrudRequest{
			Operation: "CREATE_FILE",
			File:      file,
		}
		res := items.ItemCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, items.ItemCrudTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
			return
		}

		h.adjustStorage(ctx, owner, res.Files[0].Size)

		ctx.JSON(http.StatusCreated, res)
	})

	apiGroup.POST("folders", func(ctx *gin.Context) {
		folder := entities.MakePrototype(&items.FolderPrototype{})
		if err := ctx.BindJSON(folder); err != nil {
			h.log.Error("While creating folder: error reading request", "error", err)
			return
		}

		owner := h.auth.GetUserId(ctx)
		folder.Owner.Set(owner)

		req := items.ItemCrudRequest{
			Operation: "CREATE_FOLDER",
			Folder:    folder,
		}
		res := items.ItemCrudResponse{}
		err := messaging.Request(ctx.Request.Context(), h.nc, items.ItemCrudTopic, messaging.Json(&req), messaging.Json(&res))
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

	apiGroup.POST("items/:type/:itemId/move", func(ctx *gin.Context) {
		move := moveRequest{}
		if err := ctx.BindJSON(&move); err != nil {
			h.log.Error("While moving item: error reading request", "error", err)
			return
		}

		h.itemOperation(ctx, "MOVE", move.NewParentID)
	})

	apiGroup.DELETE("items/:type/:itemId", func(ctx *gin.Context) {
		h.itemOperation(ctx, "MARK_DELETED", "")
	})

	apiGroup.POST("items/:type/:itemId/restore", func(ctx *gin.Context) {
		h.itemOperation(ctx, "RESTORE", "")
	})
}

func (h *itemsHandler) itemOperation(ctx *gin.Context, operation string, newParentId string) {
	itemType := items.ItemType(ctx.Param("type"))
	itemId := ctx.Param("itemId")
	userId := h.auth.GetUserId(ctx)

	// mutating operations are reserved for the owner
	itemReq := items.ItemResolveRequest{
		ItemID:         itemId,
		ItemType:       itemType,
		IncludeDeleted: true,
	}
	itemRes := items.ItemResolveResponse{}
	err := messaging.Request(ctx.Request.Context(), h.nc, items.ItemResolveTopic, messaging.Json(&itemReq), messaging.Json(&itemRes))
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if itemRes.Item == nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	if itemRes.Item.Owner != userId {
		ctx.AbortWithStatus(http.StatusForbidden)
		return
	}

	req := items.ItemCrudRequest{
		Operation:   operation,
		ItemID:      itemId,
		ItemType:    itemType,
		NewParentID: newParentId,
	}
	res := items.ItemCrudResponse{}
	err = messaging.Request(ctx.Request.Context(), h.nc, items.ItemCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if res.Error != "" {
		ctx.AbortWithError(gateway.StatusForReason(res.Reason), errors.New(res.Error))
		return
	}

	if itemType == items.ItemTypeFile {
		if operation == "MARK_DELETED" {
			h.adjustStorage(ctx, userId, -itemRes.Item.Size)
		} else if operation == "RESTORE" {
			h.adjustStorage(ctx, userId, itemRes.Item.Size)
		}
	}

	ctx.JSON(http.StatusOK, res)
}

// adjustStorage keeps the user's storage accounting in sync. Failures
// are logged, the file operation itself already happened.
func (h *itemsHandler) adjustStorage(ctx *gin.Context, userId string, delta int64) {
	if delta == 0 {
		return
	}

	req := users.UserCrudRequest{
		Operation: "ADJUST_STORAGE",
		User:      entities.MakePrototype(&users.UserPrototype{}),
		Delta:     delta,
	}
	req.User.UserID.Set(userId)

	res := users.UserCrudResponse{}
	err := messaging.Request(ctx.Request.Context(), h.nc, users.UserCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		h.log.Error("failed to adjust storage accounting", "error", err, "userId", userId)
		return
	}
	if res.Error != "" {
		h.log.Error("failed to adjust storage accounting", "error", res.Error, "userId", userId)
	}
}
