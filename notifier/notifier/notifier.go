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

// Package notifier turns share access events into owner notifications.
// Actual delivery (mail, push) is left to downstream systems, the
// notifier persists the notification and makes it available to the
// owner's activity feed.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"

	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/Marwan-Gama/Storify-sub001/events"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
)

type Consumer interface {
	Start() error
	Stop()
}

type consumer struct {
	log      *slog.Logger
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	ctx      jetstream.ConsumeContext

	notifications *mongo.Collection
}

type Params struct {
	fx.In

	Nc     *nats.Conn
	Js     jetstream.JetStream
	Db     *mongo.Database
	Logger *logging.Logger
	Mig    Migrations
}

func NewConsumer(p Params) (Consumer, error) {
	log := p.Logger.GetLogger("notifier")

	// we consume ShareAccessEvents

	log.Debug("create " + events.ShareAccessStream)
	cfg := jetstream.StreamConfig{
		Name:     events.ShareAccessStream,
		Subjects: []string{events.ShareAccessTopic},
	}

	stream, err := p.Js.CreateOrUpdateStream(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	c, err := stream.CreateOrUpdateConsumer(context.Background(), jetstream.ConsumerConfig{
		Durable: "STORIFY_NOTIFIER",
	})
	if err != nil {
		return nil, err
	}

	return &consumer{
		log:           log,
		nc:            p.Nc,
		js:            p.Js,
		consumer:      c,
		notifications: p.Db.Collection("notifications"),
	}, nil
}

func (c *consumer) Start() error {
	ctx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		accessEvent := events.ShareAccessEvent{}

		err := accessEvent.Unmarshal(msg.Data())
		if err != nil {
			c.log.Error("failed to deserialize message", "error", err)
			return
		}

		err = c.record(&accessEvent)
		if err != nil {
			c.log.Error("error processing ShareAccessEvent", "error", err, "event", accessEvent)
			return
		}

		msg.Ack()
	})
	if err != nil {
		return err
	}
	c.ctx = ctx
	return nil
}

func (c *consumer) Stop() {
	if c.ctx != nil {
		c.ctx.Stop()
		c.ctx = nil
	}
}

func (c *consumer) record(ev *events.ShareAccessEvent) error {
	// the owner is looked up from the share so the notification can be
	// addressed even when the accessor was anonymous
	req := shares.ShareCrudRequest{
		Operation: "READ",
		Share:     entities.MakePrototype(&shares.SharePrototype{}),
	}
	req.Share.ShareID.Set(ev.ShareID)

	res := shares.ShareCrudResponse{}
	err := messaging.Request(context.Background(), c.nc, shares.ShareCrudTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		return err
	}
	if res.Error != "" || len(res.Share) == 0 {
		// the share may have been deleted since, nothing to notify
		c.log.Debug("dropping access notification for unknown share", "shareId", ev.ShareID)
		return nil
	}

	notification := NotificationPrototype{}
	notification.Owner.Set(res.Share[0].Owner)
	notification.ShareID.Set(ev.ShareID)
	notification.ItemID.Set(ev.ItemID)
	notification.ItemType.Set(ev.ItemType)
	notification.UserID.Set(ev.UserID)
	notification.Permission.Set(ev.Permission)
	notification.Public.Set(ev.Public)
	notification.AccessTime.Set(ev.AccessTime)
	notification.Created.Set(time.Now().Unix())

	_, err = c.notifications.InsertOne(context.Background(), &notification)
	return err
}
