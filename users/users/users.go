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

package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/Marwan-Gama/Storify-sub001/logging"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/tracing"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

const UserCrudTopic = "storify.users.crud"
const UserAuthTopic = "storify.users.auth"

const ReasonConflict = "conflict"
const ReasonNotFound = "not_found"

type Params struct {
	fx.In

	Nc      *nats.Conn
	Db      *mongo.Database
	Logger  *logging.Logger
	Tracing *tracing.Tracing
	Mig     Migrations
}

type Result struct {
	fx.Out

	UsersProvider *UsersProvider
}

type UsersProvider struct {
	log     *slog.Logger
	tracer  trace.Tracer
	nc      *nats.Conn
	users   *mongo.Collection
	crudSub *nats.Subscription
	authSub *nats.Subscription
}

func New(p Params) (Result, error) {
	return Result{
		UsersProvider: &UsersProvider{
			log:    p.Logger.GetLogger("users"),
			tracer: p.Tracing.TracerProvider.Tracer("users"),
			nc:     p.Nc,
			users:  p.Db.Collection("users"),
		},
	}, nil
}

func (s *UsersProvider) Start() error {
	sub, err := s.nc.QueueSubscribe(UserCrudTopic, UserCrudTopic, func(msg *nats.Msg) {
		ctx := messaging.ExtractTraceContext(context.Background(), msg)
		ctx, span := s.tracer.Start(ctx, "handleCrud")
		defer span.End()

		req := UserCrudRequest{
			User: entities.MakePrototype(&UserPrototype{}),
		}
		json.Unmarshal(msg.Data, &req)

		resp := s.handleCrud(ctx, &req)

		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		return fmt.Errorf("While starting UsersProvider: %w", err)
	}
	s.crudSub = sub
	sub, err = s.nc.QueueSubscribe(UserAuthTopic, UserAuthTopic, func(msg *nats.Msg) {
		ctx := messaging.ExtractTraceContext(context.Background(), msg)
		ctx, span := s.tracer.Start(ctx, "handleAuth")
		defer span.End()

		req := UserAuthRequest{}
		json.Unmarshal(msg.Data, &req)

		resp := s.handleAuth(ctx, &req)

		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		return fmt.Errorf("While starting UsersProvider: %w", err)
	}
	s.authSub = sub
	return nil
}

func (s *UsersProvider) Stop() error {
	var err error
	if s.crudSub != nil {
		err = s.crudSub.Unsubscribe()
		s.crudSub = nil
	}
	if err != nil {
		return fmt.Errorf("While stopping UsersProvider: %w", err)
	}
	if s.authSub != nil {
		err = s.authSub.Unsubscribe()
		s.authSub = nil
	}
	if err != nil {
		return fmt.Errorf("While stopping UsersProvider: %w", err)
	}
	return nil
}

func (s *UsersProvider) handleAuth(ctx context.Context, req *UserAuthRequest) *UserAuthResponse {
	if req.Email == "" || req.Password == "" {
		return &UserAuthResponse{}
	}

	filter := UserPrototype{}
	filter.Email.Set(req.Email)

	result := s.users.FindOne(ctx, &filter)
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			// indistinguishable from a wrong password on purpose
			return &UserAuthResponse{}
		}
		err := fmt.Errorf("While retrieving user for auth: %w", result.Err())
		s.log.Error("error during authentication", "error", err)
		return &UserAuthResponse{Error: result.Err().Error()}
	}

	user := User{}
	result.Decode(&user)

	if !user.CheckPassword(req.Password) {
		return &UserAuthResponse{}
	}

	return &UserAuthResponse{
		UserID: user.UserID,
		Role:   user.Role,
	}
}

func (s *UsersProvider) handleCrud(ctx context.Context, req *UserCrudRequest) *UserCrudResponse {
	switch req.Operation {

	case "READ":
		if !req.User.UserID.IsDefined() && !req.User.Email.IsDefined() {
			return &UserCrudResponse{
				Error: "userId or email is required for READ operation",
			}
		}
		result, err := s.users.Find(ctx, req.User)
		if err != nil {
			return &UserCrudResponse{Error: err.Error()}
		}

		users := make([]User, 0)
		for result.Next(ctx) {
			user := User{}
			result.Decode(&user)
			users = append(users, user)
		}
		if result.Err() != nil {
			return &UserCrudResponse{Error: result.Err().Error()}
		}

		return &UserCrudResponse{Users: users}

	case "CREATE":
		if !req.User.Email.IsDefined() || req.Password == "" {
			return &UserCrudResponse{
				Error: "email and password are required for CREATE operation",
			}
		}
		if err := req.User.SetPassword(req.Password); err != nil {
			return &UserCrudResponse{Error: err.Error()}
		}
		req.User.UserID.Set(uuid.NewString())
		req.User.Created.Set(time.Now().Unix())
		req.User.StorageUsed.Set(0)
		if !req.User.Role.IsDefined() {
			req.User.Role.Set(RoleUser)
		}
		if !req.User.Tier.IsDefined() {
			req.User.Tier.Set(TierFree)
		}

		insertRes, err := s.users.InsertOne(ctx, req.User)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return &UserCrudResponse{
					Error:  "a user with this email already exists",
					Reason: ReasonConflict,
				}
			}
			return &UserCrudResponse{Error: err.Error()}
		}

		findRes := s.users.FindOne(ctx, bson.M{"_id": insertRes.InsertedID})
		user := User{}
		findRes.Decode(&user)
		return &UserCrudResponse{Users: []User{user}}

	case "UPDATE":
		if !req.User.UserID.IsDefined() {
			return &UserCrudResponse{
				Error: "userId is required for UPDATE operation",
			}
		}
		if req.Password != "" {
			if err := req.User.SetPassword(req.Password); err != nil {
				return &UserCrudResponse{Error: err.Error()}
			}
		}
		// storage accounting only changes through ADJUST_STORAGE
		req.User.StorageUsed.Unset()

		filter := UserPrototype{}
		filter.UserID.Set(req.User.UserID.Get())
		result := s.users.FindOneAndUpdate(ctx, &filter, bson.M{"$set": req.User},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &UserCrudResponse{Error: "no such user", Reason: ReasonNotFound}
			}
			if mongo.IsDuplicateKeyError(result.Err()) {
				return &UserCrudResponse{
					Error:  "a user with this email already exists",
					Reason: ReasonConflict,
				}
			}
			return &UserCrudResponse{Error: result.Err().Error()}
		}

		user := User{}
		result.Decode(&user)
		return &UserCrudResponse{Users: []User{user}}

	case "ADJUST_STORAGE":
		if !req.User.UserID.IsDefined() {
			return &UserCrudResponse{
				Error: "userId is required for ADJUST_STORAGE operation",
			}
		}

		filter := UserPrototype{}
		filter.UserID.Set(req.User.UserID.Get())
		result := s.users.FindOneAndUpdate(ctx, &filter,
			bson.M{"$inc": bson.M{"storageUsed": req.Delta}},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &UserCrudResponse{Error: "no such user", Reason: ReasonNotFound}
			}
			return &UserCrudResponse{Error: result.Err().Error()}
		}

		user := User{}
		result.Decode(&user)
		return &UserCrudResponse{Users: []User{user}}

	case "DELETE":
		if !req.User.UserID.IsDefined() {
			return &UserCrudResponse{
				Error: "userId is required for DELETE operation",
			}
		}

		result := s.users.FindOneAndDelete(ctx, req.User)
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &UserCrudResponse{Error: "no such user", Reason: ReasonNotFound}
			}
			return &UserCrudResponse{Error: result.Err().Error()}
		}

		user := User{}
		result.Decode(&user)
		return &UserCrudResponse{Users: []User{user}}

	default:
		return &UserCrudResponse{
			Error: "invalid CRUD operation: " + req.Operation,
		}
	}
}
