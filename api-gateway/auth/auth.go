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

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	gateway "github.com/Marwan-Gama/Storify-sub001/api-gateway/gateway-handler"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/users/users"
)

var Module = fx.Module("auth",
	fx.Provide(
		New,
	),
)

type Params struct {
	fx.In

	Log   *logging.Logger
	Viper *viper.Viper
	Nc    *nats.Conn
}

type Result struct {
	fx.Out

	Auth    Auth
	Handler gateway.GatewayHandler `group:"gatewayhandlers"`
}

type Auth interface {
	AuthMiddleware() func(*gin.Context)
	// GetUserId returns the authenticated user id, empty for anonymous
	GetUserId(ctx *gin.Context) string
}

type jwtAuth struct {
	log    *slog.Logger
	nc     *nats.Conn
	secret []byte
	ttl    time.Duration
}

func New(p Params) (Result, error) {
	log := p.Log.GetLogger("auth")

	p.Viper.SetDefault("auth.disabled", false)
	p.Viper.SetDefault("auth.tokenTTL", "24h")

	if p.Viper.GetBool("auth.disabled") {
		log.Warn("AUTHENTICATION DISABLED via auth.disabled parameter!! Access to all APIs and data is granted without login.")
		auth := &noAuth{user: p.Viper.GetString("auth.devUser")}
		return Result{Auth: auth, Handler: auth}, nil
	}

	secret := p.Viper.GetString("auth.jwtSecret")
	if secret == "" {
		return Result{}, errors.New("auth.jwtSecret is required")
	}

	auth := &jwtAuth{
		log:    log,
		nc:     p.Nc,
		secret: []byte(secret),
		ttl:    p.Viper.GetDuration("auth.tokenTTL"),
	}
	return Result{Auth: auth, Handler: auth}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (a *jwtAuth) Setup(engine *gin.Engine, apiGroup *gin.RouterGroup) {
	engine.POST("/auth/login", func(ctx *gin.Context) {
		login := loginRequest{}
		if err := ctx.BindJSON(&login); err != nil {
			return
		}

		req := users.UserAuthRequest{
			Email:    login.Email,
			Password: login.Password,
		}
		res := users.UserAuthResponse{}
		err := messaging.Request(ctx.Request.Context(), a.nc, users.UserAuthTopic, messaging.Json(&req), messaging.Json(&res))
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if res.Error != "" {
			ctx.AbortWithError(http.StatusInternalServerError, errors.New(res.Error))
			return
		}
		if res.UserID == "" {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  res.UserID,
			"role": res.Role,
			"iat":  now.Unix(),
			"exp":  now.Add(a.ttl).Unix(),
		})
		signed, err := token.SignedString(a.secret)
		if err != nil {
			ctx.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		ctx.JSON(http.StatusOK, loginResponse{Token: signed})
	})
}

func (a *jwtAuth) AuthMiddleware() func(*gin.Context) {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ctx.Set("userId", sub)
		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if role, ok := claims["role"].(string); ok {
				ctx.Set("role", role)
			}
		}
		ctx.Next()
	}
}

func (a *jwtAuth) GetUserId(ctx *gin.Context) string {
	return ctx.GetString("userId")
}
