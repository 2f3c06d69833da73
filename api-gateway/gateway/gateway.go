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

package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"go.uber.org/fx"

	"github.com/Marwan-Gama/Storify-sub001/api-gateway/auth"
	handler "github.com/Marwan-Gama/Storify-sub001/api-gateway/gateway-handler"
	"github.com/Marwan-Gama/Storify-sub001/logging"
)

var Module = fx.Module("gateway",
	fx.Provide(
		New,
	),
)

type Params struct {
	fx.In

	Log      *logging.Logger
	Viper    *viper.Viper
	Auth     auth.Auth
	Handlers []handler.GatewayHandler `group:"gatewayhandlers"`
	Lc       fx.Lifecycle
}

type Result struct {
	fx.Out

	Gateway Gateway
}

type Gateway interface {
	Start(handlers []handler.GatewayHandler)
	Stop()
}

type gateway struct {
	log    *slog.Logger
	viper  *viper.Viper
	auth   auth.Auth
	server *http.Server
}

func New(p Params) Result {
	p.Viper.SetDefault("gateway.address", ":8080")
	p.Viper.SetDefault("gateway.webappLocation", "/srv/webapp")

	gateway := &gateway{
		log:   p.Log.GetLogger("api-gateway"),
		viper: p.Viper,
		auth:  p.Auth,
	}

	p.Lc.Append(fx.StartHook(func() {
		gateway.Start(p.Handlers)
	}))
	p.Lc.Append(fx.StopHook(gateway.Stop))

	return Result{Gateway: gateway}
}

func (g *gateway) Start(handlers []handler.GatewayHandler) {
	engine := gin.Default()

	// /api requires a login, the /s link routes are deliberately public
	apiGroup := engine.Group("/api", cachecontrol.New(cachecontrol.NoCachePreset), g.auth.AuthMiddleware())

	webAppGroup := engine.Group("/webapp")
	webAppLocation := g.viper.GetString("gateway.webappLocation")
	webAppGroup.Static("/", webAppLocation)

	for _, handler := range handlers {
		handler.Setup(engine, apiGroup)
	}

	address := g.viper.GetString("gateway.address")
	g.server = &http.Server{
		Addr:    address,
		Handler: engine.Handler(),
	}

	go g.server.ListenAndServe()

	g.log.Info("HTTP Server listening on " + address)
}

func (g *gateway) Stop() {
	if g.server == nil {
		return
	}
	g.server.Shutdown(context.Background())
	g.server = nil
	g.log.Info("HTTP Server closed")
}
