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

const ItemResolveTopic = "storify.items.resolve"
const ItemCrudTopic = "storify.items.crud"

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

	ItemsProvider *ItemsProvider
}

type ItemsProvider struct {
	log        *slog.Logger
	tracer     trace.Tracer
	nc         *nats.Conn
	files      *mongo.Collection
	folders    *mongo.Collection
	resolveSub *nats.Subscription
	crudSub    *nats.Subscription
}

func New(p Params) (Result, error) {
	return Result{
		ItemsProvider: &ItemsProvider{
			log:     p.Logger.GetLogger("items"),
			tracer:  p.Tracing.TracerProvider.Tracer("items"),
			nc:      p.Nc,
			files:   p.Db.Collection("files"),
			folders: p.Db.Collection("folders"),
		},
	}, nil
}

func (s *ItemsProvider) Start() error {
	sub, err := s.nc.QueueSubscribe(ItemResolveTopic, ItemResolveTopic, func(msg *nats.Msg) {
		ctx := messaging.ExtractTraceContext(context.Background(), msg)
		ctx, span := s.tracer.Start(ctx, "resolveItem")
		defer span.End()

		req := ItemResolveRequest{}
		json.Unmarshal(msg.Data, &req)

		resp := s.resolveItem(ctx, &req)

		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		return fmt.Errorf("While starting ItemsProvider: %w", err)
	}
	s.resolveSub = sub
	sub, err = s.nc.QueueSubscribe(ItemCrudTopic, ItemCrudTopic, func(msg *nats.Msg) {
		ctx := messaging.ExtractTraceContext(context.Background(), msg)
		ctx, span := s.tracer.Start(ctx, "handleCrud")
		defer span.End()

		req := ItemCrudRequest{
			File:   entities.MakePrototype(&FilePrototype{}),
			Folder: entities.MakePrototype(&FolderPrototype{}),
		}
		json.Unmarshal(msg.Data, &req)

		resp := s.handleCrud(ctx, &req)

		data, _ := json.Marshal(resp)
		msg.Respond(data)
	})
	if err != nil {
		return fmt.Errorf("While starting ItemsProvider: %w", err)
	}
	s.crudSub = sub
	return nil
}

func (s *ItemsProvider) Stop() error {
	var err error
	if s.crudSub != nil {
		err = s.crudSub.Unsubscribe()
		s.crudSub = nil
	}
	if err != nil {
		return fmt.Errorf("While stopping ItemsProvider: %w", err)
	}
	if s.resolveSub != nil {
		err = s.resolveSub.Unsubscribe()
		s.resolveSub = nil
	}
	if err != nil {
		return fmt.Errorf("While stopping ItemsProvider: %w", err)
	}
	return nil
}

func (s *ItemsProvider) resolveItem(ctx context.Context, req *ItemResolveRequest) *ItemResolveResponse {
	if req.ItemID == "" || !req.ItemType.Valid() {
		return &ItemResolveResponse{
			Error:  "itemId and itemType are required for resolve",
			Reason: ReasonNotFound,
		}
	}

	switch req.ItemType {

	case ItemTypeFile:
		filter := FilePrototype{}
		filter.FileID.Set(req.ItemID)
		if !req.IncludeDeleted {
			filter.Deleted.Set(false)
		}
		result := s.files.FindOne(ctx, &filter)
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &ItemResolveResponse{Reason: ReasonNotFound}
			}
			err := fmt.Errorf("While resolving file: %w", result.Err())
			s.log.Error("error while resolving item", "error", err)
			return &ItemResolveResponse{Error: result.Err().Error()}
		}
		file := File{}
		result.Decode(&file)
		return &ItemResolveResponse{Item: file.ToItem()}

	default:
		filter := FolderPrototype{}
		filter.FolderID.Set(req.ItemID)
		if !req.IncludeDeleted {
			filter.Deleted.Set(false)
		}
		result := s.folders.FindOne(ctx, &filter)
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &ItemResolveResponse{Reason: ReasonNotFound}
			}
			err := fmt.Errorf("While resolving folder: %w", result.Err())
			s.log.Error("error while resolving item", "error", err)
			return &ItemResolveResponse{Error: result.Err().Error()}
		}
		folder := Folder{}
		result.Decode(&folder)
		return &ItemResolveResponse{Item: folder.ToItem()}
	}
}

func (s *ItemsProvider) handleCrud(ctx context.Context, req *ItemCrudRequest) *ItemCrudResponse {
	switch req.Operation {

	case "READ":
		if !req.File.Owner.IsDefined() && !req.Folder.Owner.IsDefined() {
			return &ItemCrudResponse{
				Error: "owner is required for READ operation",
			}
		}
		// listings exclude trashed items unless explicitly requested
		if !req.File.Deleted.IsDefined() {
			req.File.Deleted.Set(false)
		}
		if !req.Folder.Deleted.IsDefined() {
			req.Folder.Deleted.Set(false)
		}

		resp := &ItemCrudResponse{
			Files:   make([]File, 0),
			Folders: make([]Folder, 0),
		}
		if req.File.Owner.IsDefined() {
			result, err := s.files.Find(ctx, req.File)
			if err != nil {
				return &ItemCrudResponse{Error: err.Error()}
			}
			for result.Next(ctx) {
				file := File{}
				result.Decode(&file)
				resp.Files = append(resp.Files, file)
			}
			if result.Err() != nil {
				return &ItemCrudResponse{Error: result.Err().Error()}
			}
		}
		if req.Folder.Owner.IsDefined() {
			result, err := s.folders.Find(ctx, req.Folder)
			if err != nil {
				return &ItemCrudResponse{Error: err.Error()}
			}
			for result.Next(ctx) {
				folder := Folder{}
				result.Decode(&folder)
				resp.Folders = append(resp.Folders, folder)
			}
			if result.Err() != nil {
				return &ItemCrudResponse{Error: result.Err().Error()}
			}
		}
		return resp

	case "CREATE_FILE":
		if !req.File.Owner.IsDefined() || !req.File.Name.IsDefined() {
			return &ItemCrudResponse{
				Error: "owner and name are required for CREATE_FILE operation",
			}
		}
		if req.File.ParentID.IsDefined() && req.File.ParentID.Get() != "" {
			parent, err := s.lookupFolder(ctx, req.File.ParentID.Get())
			if err != nil {
				return &ItemCrudResponse{Error: err.Error()}
			}
			if parent == nil || parent.Deleted {
				return &ItemCrudResponse{
					Error:  "parent folder does not exist",
					Reason: ReasonNotFound,
				}
			}
		}
		now := time.Now().Unix()
		req.File.FileID.Set(uuid.NewString())
		req.File.Deleted.Set(false)
		req.File.Created.Set(now)
		req.File.Modified.Set(now)

		insertRes, err := s.files.InsertOne(ctx, req.File)
		if err != nil {
			return &ItemCrudResponse{Error: err.Error()}
		}
		findRes := s.files.FindOne(ctx, bson.M{"_id": insertRes.InsertedID})
		file := File{}
		findRes.Decode(&file)
		return &ItemCrudResponse{Files: []File{file}}

	case "CREATE_FOLDER":
		if !req.Folder.Owner.IsDefined() || !req.Folder.Name.IsDefined() {
			return &ItemCrudResponse{
				Error: "owner and name are required for CREATE_FOLDER operation",
			}
		}
		if req.Folder.ParentID.IsDefined() && req.Folder.ParentID.Get() != "" {
			parent, err := s.lookupFolder(ctx, req.Folder.ParentID.Get())
			if err != nil {
				return &ItemCrudResponse{Error: err.Error()}
			}
			if parent == nil || parent.Deleted {
				return &ItemCrudResponse{
					Error:  "parent folder does not exist",
					Reason: ReasonNotFound,
				}
			}
		}
		now := time.Now().Unix()
		req.Folder.FolderID.Set(uuid.NewString())
		req.Folder.Deleted.Set(false)
		req.Folder.Created.Set(now)
		req.Folder.Modified.Set(now)

		insertRes, err := s.folders.InsertOne(ctx, req.Folder)
		if err != nil {
			return &ItemCrudResponse{Error: err.Error()}
		}
		findRes := s.folders.FindOne(ctx, bson.M{"_id": insertRes.InsertedID})
		folder := Folder{}
		findRes.Decode(&folder)
		return &ItemCrudResponse{Folders: []Folder{folder}}

	case "MOVE":
		return s.handleMove(ctx, req)

	case "MARK_DELETED":
		return s.setDeleted(ctx, req, true)

	case "RESTORE":
		return s.setDeleted(ctx, req, false)

	default:
		return &ItemCrudResponse{
			Error: "invalid CRUD operation: " + req.Operation,
		}
	}
}

func (s *ItemsProvider) handleMove(ctx context.Context, req *ItemCrudRequest) *ItemCrudResponse {
	if req.ItemID == "" || !req.ItemType.Valid() {
		return &ItemCrudResponse{
			Error: "itemId and itemType are required for MOVE operation",
		}
	}
	if req.NewParentID != "" {
		parent, err := s.lookupFolder(ctx, req.NewParentID)
		if err != nil {
			return &ItemCrudResponse{Error: err.Error()}
		}
		if parent == nil || parent.Deleted {
			return &ItemCrudResponse{
				Error:  "target folder does not exist",
				Reason: ReasonNotFound,
			}
		}
	}

	now := time.Now().Unix()

	if req.ItemType == ItemTypeFile {
		filter := FilePrototype{}
		filter.FileID.Set(req.ItemID)
		update := FilePrototype{}
		update.ParentID.Set(req.NewParentID)
		update.Modified.Set(now)
		result := s.files.FindOneAndUpdate(ctx, &filter, bson.M{"$set": &update},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &ItemCrudResponse{Error: "no such file", Reason: ReasonNotFound}
			}
			return &ItemCrudResponse{Error: result.Err().Error()}
		}
		file := File{}
		result.Decode(&file)
		return &ItemCrudResponse{Files: []File{file}}
	}

	// a folder must not be moved underneath itself
	err := checkMove(ctx, req.ItemID, req.NewParentID, s.lookupFolder)
	if err != nil {
		if errors.Is(err, ErrCycle) || errors.Is(err, ErrParentNotFound) {
			return &ItemCrudResponse{Error: err.Error()}
		}
		s.log.Error("error during move cycle check", "error", err)
		return &ItemCrudResponse{Error: err.Error()}
	}

	filter := FolderPrototype{}
	filter.FolderID.Set(req.ItemID)
	update := FolderPrototype{}
	update.ParentID.Set(req.NewParentID)
	update.Modified.Set(now)
	result := s.folders.FindOneAndUpdate(ctx, &filter, bson.M{"$set": &update},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return &ItemCrudResponse{Error: "no such folder", Reason: ReasonNotFound}
		}
		return &ItemCrudResponse{Error: result.Err().Error()}
	}
	folder := Folder{}
	result.Decode(&folder)
	return &ItemCrudResponse{Folders: []Folder{folder}}
}

func (s *ItemsProvider) setDeleted(ctx context.Context, req *ItemCrudRequest, deleted bool) *ItemCrudResponse {
	if req.ItemID == "" || !req.ItemType.Valid() {
		return &ItemCrudResponse{
			Error: "itemId and itemType are required for " + req.Operation + " operation",
		}
	}

	now := time.Now().Unix()

	// the deletion timestamp travels with the flag, a restore clears it
	deletedAt := int64(0)
	if deleted {
		deletedAt = now
	}

	if req.ItemType == ItemTypeFile {
		filter := FilePrototype{}
		filter.FileID.Set(req.ItemID)
		update := FilePrototype{}
		update.Deleted.Set(deleted)
		update.DeletedAt.Set(deletedAt)
		update.Modified.Set(now)
		result := s.files.FindOneAndUpdate(ctx, &filter, bson.M{"$set": &update},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
		if result.Err() != nil {
			if errors.Is(result.Err(), mongo.ErrNoDocuments) {
				return &ItemCrudResponse{Error: "no such file", Reason: ReasonNotFound}
			}
			return &ItemCrudResponse{Error: result.Err().Error()}
		}
		file := File{}
		result.Decode(&file)
		return &ItemCrudResponse{Files: []File{file}}
	}

	filter := FolderPrototype{}
	filter.FolderID.Set(req.ItemID)
	update := FolderPrototype{}
	update.Deleted.Set(deleted)
	update.DeletedAt.Set(deletedAt)
	update.Modified.Set(now)
	result := s.folders.FindOneAndUpdate(ctx, &filter, bson.M{"$set": &update},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return &ItemCrudResponse{Error: "no such folder", Reason: ReasonNotFound}
		}
		return &ItemCrudResponse{Error: result.Err().Error()}
	}
	folder := Folder{}
	result.Decode(&folder)
	return &ItemCrudResponse{Folders: []Folder{folder}}
}

func (s *ItemsProvider) lookupFolder(ctx context.Context, folderId string) (*Folder, error) {
	filter := FolderPrototype{}
	filter.FolderID.Set(folderId)
	result := s.folders.FindOne(ctx, &filter)
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, result.Err()
	}
	folder := Folder{}
	err := result.Decode(&folder)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}
