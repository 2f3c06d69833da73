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

package main

import (
	"go.uber.org/fx"

	"github.com/Marwan-Gama/Storify-sub001/api-gateway/auth"
	"github.com/Marwan-Gama/Storify-sub001/api-gateway/gateway"
	"github.com/Marwan-Gama/Storify-sub001/api-gateway/items"
	"github.com/Marwan-Gama/Storify-sub001/api-gateway/links"
	"github.com/Marwan-Gama/Storify-sub001/api-gateway/shares"
	"github.com/Marwan-Gama/Storify-sub001/api-gateway/users"
	"github.com/Marwan-Gama/Storify-sub001/config"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
)

func main() {
	fx.New(
		logging.Module,
		messaging.Module,
		config.Module,
		auth.Module,
		gateway.Module,
		shares.Module,
		links.Module,
		items.Module,
		users.Module,
		logging.FxLogger(),
		fx.Invoke(func(g gateway.Gateway) {
			// required to bootstrap the Gateway
		}),
	).Run()
}
