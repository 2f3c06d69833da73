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
	"github.com/Marwan-Gama/Storify-sub001/config"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/mongodb"
	"github.com/Marwan-Gama/Storify-sub001/notifier/notifier"
	"github.com/Marwan-Gama/Storify-sub001/tracing"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		logging.Module,
		messaging.Module,
		config.Module,
		mongodb.Module,
		tracing.Module,
		logging.FxLogger(),
		fx.Provide(notifier.NewMigrations),
		fx.Decorate(func(viper *viper.Viper) *viper.Viper {
			viper.SetDefault("tracing.serviceName", "notifier")
			return viper
		}),
		fx.Decorate(func(client *mongo.Client, viper *viper.Viper) *mongo.Client {
			viper.SetDefault("mongo.db", "storify-notifier")
			return client
		}),
		fx.Invoke(func(params notifier.Params, lc fx.Lifecycle) error {

			consumer, err := notifier.NewConsumer(params)

			if err != nil {
				return err
			}

			lc.Append(fx.StartHook(func() error {
				return consumer.Start()
			}))
			lc.Append(fx.StopHook(func() {
				consumer.Stop()
			}))

			return nil
		}),
	).Run()
}
