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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/Marwan-Gama/Storify-sub001/events"
	"github.com/Marwan-Gama/Storify-sub001/items/items"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/tracing"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

const ShareResolveTopic = "storify.shares.resolve"
const ShareCrudTopic = "storify.shares.crud"

const ReasonConflict = "conflict"
const ReasonNotFound = "not_found"
const ReasonForbidden = "forbidden"

type Params struct {
	fx.In

	Nc      *nats.Conn
	Js      jetstream.JetStream
	Db      *mongo.Database
	Logger  *logging.Logger
	Tracing *tracing.Tracing
	Mig     Migrations
}

type Result struct {
	fx.Out

	SharesProvider *SharesProvider
}

type SharesProvider struct {
	log        *slog.Logger
	tracer     trace.Tracer
	nc         *nats.Conn
	shares     *mongo.Collection
	newLink    func() (string, error)
	resolveSub *nats.Subscription
	crudSub    *nats.Subscription
}

func New(p Params) (Result, error) {
	log := p.Logger.GetLogger("shares")

	// we are producer for ShareChangedEvent
	log.Debug("create " + events.ShareChangedStream)
	cfg := jetstream.StreamConfig{
		Name:     events.ShareChangedStream,
		Subjects: []string{events.ShareChangedTopic},
	}
	_, err := p.Js.CreateOrUpdateStream(context.Background(), cfg)
	if err != nil {
		return Result{}, err
	}

	return Result{
		SharesProvider: &SharesProvider{
			log:     log,
			tracer:  p.Tracing.TracerProvider.Tracer("shares"),
			nc:      p.Nc,
			shares:  p.Db.Collection("shares"),
			newLink: NewPublicLink,
		},
	}, nil
}

func (s *SharesProvider) Start() error {
	sub, err := s.nc.QueueSubscribe(ShareResolveTopic, ShareResolveTopic, func(msg *nats.Msg) {
		ctx := messaging.ExtractTraceContext(context.Background(), msg)
		ctx, span := s.tracer.Start(ctx, "resolveShare")
		defer span.End()

		req := ShareResolveRequest{}
		json.Unmarshal(msg.Data, &req)

		resp := s.resolveShare(ctx, &req)

		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		return fmt.Errorf("While starting SharesProvider: %w", err)
	}
	s.resolveSub = sub
	sub, err = s.nc.QueueSubscribe(ShareCrudTopic, ShareCrudTopic, func(msg *nats.Msg) {
		ctx := messaging.ExtractTraceContext(context.Background(), msg)
		ctx, span := s.tracer.Start(ctx, "handleCrud")
		defer span.End()

		req := ShareCrudRequest{
			Share: entities.MakePrototype(&SharePrototype{}),
		}
		json.Unmarshal(msg.Data, &req)

		resp := s.handleCrud(ctx, &req)

		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		return fmt.Errorf("While starting SharesProvider: %w", err)
	}
	s.crudSub = sub
	return nil
}

func (s *SharesProvider) Stop() error {
	var err error
	if s.crudSub != nil {
		err = s.crudSub.Unsubscribe()
		s.crudSub = nil
	}
	if err != nil {
		return fmt.Errorf("While stopping SharesProvider: %w", err)
	}
	if s.resolveSub != nil {
		err = s.resolveSub.Unsubscribe()
		s.resolveSub = nil
	}
	if err != nil {
		return fmt.Errorf("While stopping SharesProvider: %w", err)
	}
	return nil
}

func (s *SharesProvider) resolveShare(ctx context.Context, req *ShareResolveRequest) *ShareResolveResponse {
	filter := SharePrototype{}
	if req.ShareID != "" {
		filter.ShareID.Set(req.ShareID)
	} else if req.PublicLink != "" {
		filter.PublicLink.Set(req.PublicLink)
	} else {
		return &ShareResolveResponse{
			Error: "shareId or publicLink is required for resolve",
		}
	}

	result := s.shares.FindOne(ctx, &filter)
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			// empty response indicates "not found"
			return &ShareResolveResponse{}
		}
		err := fmt.Errorf("While retrieving share from the database for resolve: %w", result.Err())
		s.log.Error("error while resolving share", "error", err)
		return &ShareResolveResponse{
			Error: result.Err().Error(),
		}
	}
	share := Share{}
	result.Decode(&share)

	return &ShareResolveResponse{Share: &share}
}

func (s *SharesProvider) handleCrud(ctx context.Context, req *ShareCrudRequest) *ShareCrudResponse {
	switch req.Operation {

	case "READ":
		if !req.Share.ShareID.IsDefined() && !req.Share.Owner.IsDefined() &&
			!req.Share.ItemID.IsDefined() && !req.Share.SharedWithID.IsDefined() {
			return &ShareCrudResponse{
				Error: "shareId, owner, itemId or sharedWithId is required for READ operation",
			}
		}
		result, err := s.shares.Find(ctx, req.Share)
		if err != nil {
			return &ShareCrudResponse{
				Error: err.Error(),
			}
		}

		shares := make([]Share, 0)
		for result.Next(ctx) {
			share := Share{}
			result.Decode(&share)
			shares = append(shares, share)
		}
		if result.Err() != nil {
			return &ShareCrudResponse{
				Error: result.Err().Error(),
			}
		}

		return &ShareCrudResponse{
			Share: shares,
		}

	case "CREATE":
		return s.handleCreate(ctx, req)

	case "UPDATE":

		if !req.Share.ShareID.IsDefined() {
			return &ShareCrudResponse{
				Error: "shareId is required for UPDATE operation",
			}
		}
		if req.Share.Permission.IsDefined() && !req.Share.Permission.Get().Valid() {
			return &ShareCrudResponse{
				Error: "invalid permission: " + string(req.Share.Permission.Get()),
			}
		}
		if req.Password != "" {
			if err := req.Share.SetPassword(req.Password); err != nil {
				return &ShareCrudResponse{Error: err.Error()}
			}
		}

		filter := SharePrototype{}
		filter.ShareID.Set(req.Share.ShareID.Get())
		if req.Share.Owner.IsDefined() {
			filter.Owner.Set(req.Share.Owner.Get())
			req.Share.Owner.Unset()
		}
		// access accounting never changes through CRUD
		req.Share.AccessCount.Unset()
		req.Share.LastAccessed.Unset()
		// the item binding is fixed at creation, a repointed share would
		// grant access to an item its owner never validated
		req.Share.ItemID.Unset()
		req.Share.ItemType.Unset()
		// link state only changes through REGENERATE_LINK, a client must
		// not be able to choose its own token
		req.Share.PublicLink.Unset()
		req.Share.IsPublic.Unset()
		req.Share.Created.Unset()

		result := s.shares.FindOneAndUpdate(ctx, &filter, bson.M{"$set": req.Share},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &ShareCrudResponse{Error: "no such share", Reason: ReasonNotFound}
			}
			return &ShareCrudResponse{
				Error: result.Err().Error(),
			}
		}

		share := Share{}
		result.Decode(&share)

		s.publishChanged(&share, "UPDATE")

		return &ShareCrudResponse{
			Share: []Share{share},
		}

	case "REGENERATE_LINK":

		if !req.Share.ShareID.IsDefined() {
			return &ShareCrudResponse{
				Error: "shareId is required for REGENERATE_LINK operation",
			}
		}

		token, err := s.newLink()
		if err != nil {
			return &ShareCrudResponse{Error: err.Error()}
		}

		filter := SharePrototype{}
		filter.ShareID.Set(req.Share.ShareID.Get())
		if req.Share.Owner.IsDefined() {
			filter.Owner.Set(req.Share.Owner.Get())
		}
		update := SharePrototype{}
		update.IsPublic.Set(true)
		update.PublicLink.Set(token)

		result := s.shares.FindOneAndUpdate(ctx, &filter, bson.M{"$set": &update},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &ShareCrudResponse{Error: "no such share", Reason: ReasonNotFound}
			}
			if mongo.IsDuplicateKeyError(result.Err()) {
				return &ShareCrudResponse{
					Error:  "public link collision, retry",
					Reason: ReasonConflict,
				}
			}
			return &ShareCrudResponse{
				Error: result.Err().Error(),
			}
		}

		share := Share{}
		result.Decode(&share)

		s.publishChanged(&share, "UPDATE")

		return &ShareCrudResponse{
			Share: []Share{share},
		}

	case "DELETE":

		if !req.Share.ShareID.IsDefined() {
			return &ShareCrudResponse{
				Error: "shareId is required for DELETE operation",
			}
		}

		result := s.shares.FindOneAndDelete(ctx, req.Share)
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &ShareCrudResponse{Error: "no such share", Reason: ReasonNotFound}
			}
			return &ShareCrudResponse{
				Error: result.Err().Error(),
			}
		}

		share := Share{}
		result.Decode(&share)

		s.publishChanged(&share, "DELETE")

		return &ShareCrudResponse{
			Share: []Share{share},
		}

	default:
		return &ShareCrudResponse{
			Error: "invalid CRUD operation: " + req.Operation,
		}
	}
}

func (s *SharesProvider) handleCreate(ctx context.Context, req *ShareCrudRequest) *ShareCrudResponse {
	if !req.Share.Owner.IsDefined() || !req.Share.ItemID.IsDefined() || !req.Share.ItemType.IsDefined() {
		return &ShareCrudResponse{
			Error: "owner, itemId and itemType are required for CREATE operation",
		}
	}
	if !req.Share.Permission.IsDefined() {
		req.Share.Permission.Set(PermissionView)
	}
	if !req.Share.Permission.Get().Valid() {
		return &ShareCrudResponse{
			Error: "invalid permission: " + string(req.Share.Permission.Get()),
		}
	}

	// the creator must actually own the item being shared
	resolveReq := items.ItemResolveRequest{
		ItemID:   req.Share.ItemID.Get(),
		ItemType: req.Share.ItemType.Get(),
	}
	resolveRes := items.ItemResolveResponse{}
	err := messaging.Request(ctx, s.nc, items.ItemResolveTopic, messaging.Json(&resolveReq), messaging.Json(&resolveRes))
	if err != nil {
		return &ShareCrudResponse{Error: err.Error()}
	}
	if resolveRes.Error != "" {
		return &ShareCrudResponse{Error: resolveRes.Error, Reason: resolveRes.Reason}
	}
	if resolveRes.Item == nil {
		return &ShareCrudResponse{
			Error:  "shared item does not exist",
			Reason: ReasonNotFound,
		}
	}
	if resolveRes.Item.Owner != req.Share.Owner.Get() {
		return &ShareCrudResponse{
			Error:  "only the owner of an item can share it",
			Reason: ReasonForbidden,
		}
	}

	req.Share.ShareID.Set(uuid.NewString())
	req.Share.Created.Set(time.Now().Unix())
	req.Share.AccessCount.Set(0)
	req.Share.LastAccessed.Set(0)
	if !req.Share.IsActive.IsDefined() {
		req.Share.IsActive.Set(true)
	}
	// the flags restrict, an absent flag restricts nothing
	if !req.Share.AllowDownload.IsDefined() {
		req.Share.AllowDownload.Set(true)
	}
	if !req.Share.AllowEdit.IsDefined() {
		req.Share.AllowEdit.Set(true)
	}
	// a client-supplied token is never honored, only freshly minted
	// links are stored
	req.Share.PublicLink.Unset()
	if req.Share.IsPublic.IsDefined() && req.Share.IsPublic.Get() {
		token, err := s.newLink()
		if err != nil {
			return &ShareCrudResponse{Error: err.Error()}
		}
		req.Share.PublicLink.Set(token)
	} else {
		req.Share.IsPublic.Set(false)
	}
	if req.Password != "" {
		if err := req.Share.SetPassword(req.Password); err != nil {
			return &ShareCrudResponse{Error: err.Error()}
		}
	}

	insertRes, err := s.shares.InsertOne(ctx, req.Share)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &ShareCrudResponse{
				Error:  "public link collision, retry",
				Reason: ReasonConflict,
			}
		}
		return &ShareCrudResponse{
			Error: err.Error(),
		}
	}

	findRes := s.shares.FindOne(ctx, bson.M{"_id": insertRes.InsertedID})

	share := Share{}
	findRes.Decode(&share)

	s.publishChanged(&share, "CREATE")

	return &ShareCrudResponse{
		Share: []Share{share},
	}
}

func (s *SharesProvider) publishChanged(share *Share, operation string) {
	ev := events.ShareChangedEvent{
		Event: events.Event{
			ID:      uuid.NewString(),
			Version: 1,
		},
		ShareID:   share.ShareID,
		Owner:     share.Owner,
		Operation: operation,
	}

	data, err := ev.Marshal()
	if err != nil {
		s.log.Error("failed to serialize ShareChangedEvent", "error", err)
		return
	}

	topic := fmt.Sprintf(events.ShareChangedTopicPattern, share.ShareID)
	s.nc.Publish(topic, data)
}
