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

package access

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Marwan-Gama/Storify-sub001/events"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
	"github.com/Marwan-Gama/Storify-sub001/tracing"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

const AccessCheckTopic = "storify.access.check"

type Params struct {
	fx.In

	Nc      *nats.Conn
	Js      jetstream.JetStream
	Db      *mongo.Database
	Logger  *logging.Logger
	Tracing *tracing.Tracing
}

type Result struct {
	fx.Out

	AccessProvider *AccessProvider
}

type AccessProvider struct {
	log       *slog.Logger
	tracer    trace.Tracer
	nc        *nats.Conn
	evaluator *Evaluator
	checkSub  *nats.Subscription
}

func New(p Params) (Result, error) {
	log := p.Logger.GetLogger("access")

	// we are producer for ShareAccessEvent
	log.Debug("create " + events.ShareAccessStream)
	cfg := jetstream.StreamConfig{
		Name:     events.ShareAccessStream,
		Subjects: []string{events.ShareAccessTopic},
	}
	_, err := p.Js.CreateOrUpdateStream(context.Background(), cfg)
	if err != nil {
		return Result{}, err
	}

	provider := &AccessProvider{
		log:    log,
		tracer: p.Tracing.TracerProvider.Tracer("access"),
		nc:     p.Nc,
	}
	provider.evaluator = NewEvaluator(NewStore(p.Nc, p.Db), log, provider.publishAccessed)

	return Result{AccessProvider: provider}, nil
}

func (s *AccessProvider) Start() error {
	sub, err := s.nc.QueueSubscribe(AccessCheckTopic, AccessCheckTopic, func(msg *nats.Msg) {
		ctx := messaging.ExtractTraceContext(context.Background(), msg)
		ctx, span := s.tracer.Start(ctx, "checkAccess")
		defer span.End()

		req := AccessCheckRequest{}
		json.Unmarshal(msg.Data, &req)

		resp := s.checkAccess(ctx, &req)

		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		return fmt.Errorf("While starting AccessProvider: %w", err)
	}
	s.checkSub = sub
	return nil
}

func (s *AccessProvider) Stop() error {
	if s.checkSub != nil {
		err := s.checkSub.Unsubscribe()
		s.checkSub = nil
		if err != nil {
			return fmt.Errorf("While stopping AccessProvider: %w", err)
		}
	}
	return nil
}

func (s *AccessProvider) checkAccess(ctx context.Context, req *AccessCheckRequest) *AccessCheckResponse {
	decision, err := s.evaluator.Evaluate(ctx, &req.CheckRequest)
	if err != nil {
		s.log.Error("error during access evaluation", "error", err,
			"itemId", req.ItemID, "itemType", req.ItemType)
		return &AccessCheckResponse{Error: err.Error()}
	}
	return &AccessCheckResponse{Decision: decision}
}

func (s *AccessProvider) publishAccessed(share *shares.Share, req *CheckRequest) {
	ev := events.ShareAccessEvent{
		Event: events.Event{
			ID:      uuid.NewString(),
			Version: 1,
		},
		ShareID:    share.ShareID,
		ItemID:     share.ItemID,
		ItemType:   string(share.ItemType),
		UserID:     req.UserID,
		Permission: string(req.Permission),
		Public:     req.PublicLink != "",
		AccessTime: time.Now().Unix(),
	}

	data, err := ev.Marshal()
	if err != nil {
		s.log.Error("failed to serialize ShareAccessEvent", "error", err)
		return
	}

	topic := fmt.Sprintf(events.ShareAccessTopicPattern, share.ShareID)
	s.nc.Publish(topic, data)
}
