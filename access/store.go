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
	"errors"
	"time"

	"github.com/Marwan-Gama/Storify-sub001/items/items"
	"github.com/Marwan-Gama/Storify-sub001/messaging"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// store backs the evaluator with the shares collection and the items
// service. Items live in a different service, they are resolved over the
// bus instead of a second database handle.
type store struct {
	nc     *nats.Conn
	shares *mongo.Collection
}

var _ Store = &store{}

func NewStore(nc *nats.Conn, db *mongo.Database) Store {
	return &store{
		nc:     nc,
		shares: db.Collection("shares"),
	}
}

func (s *store) ResolveItem(ctx context.Context, itemId string, itemType items.ItemType) (*items.Item, error) {
	req := items.ItemResolveRequest{
		ItemID:         itemId,
		ItemType:       itemType,
		IncludeDeleted: true,
	}
	res := items.ItemResolveResponse{}
	err := messaging.Request(ctx, s.nc, items.ItemResolveTopic, messaging.Json(&req), messaging.Json(&res))
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, errors.New(res.Error)
	}
	return res.Item, nil
}

func (s *store) FindUserShares(ctx context.Context, itemId string, itemType items.ItemType, userId string, email string) ([]shares.Share, error) {
	grantee := make([]bson.M, 0, 2)
	if userId != "" {
		grantee = append(grantee, bson.M{"sharedWithId": userId})
	}
	if email != "" {
		// an invite email only drives while no resolved user is bound
		grantee = append(grantee, bson.M{
			"sharedWithEmail": email,
			"sharedWithId":    bson.M{"$in": bson.A{nil, ""}},
		})
	}
	if len(grantee) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"itemId":   itemId,
		"itemType": itemType,
		"$or":      grantee,
	}

	cursor, err := s.shares.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := make([]shares.Share, 0)
	for cursor.Next(ctx) {
		share := shares.Share{}
		cursor.Decode(&share)
		result = append(result, share)
	}
	return result, cursor.Err()
}

func (s *store) FindShareByPublicLink(ctx context.Context, token string) (*shares.Share, error) {
	filter := shares.SharePrototype{}
	filter.PublicLink.Set(token)
	filter.IsPublic.Set(true)

	res := s.shares.FindOne(ctx, &filter)
	if res.Err() != nil {
		if errors.Is(res.Err(), mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, res.Err()
	}

	share := shares.Share{}
	err := res.Decode(&share)
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// RecordAccess is a single conditional update so that concurrent
// accesses never lose increments.
func (s *store) RecordAccess(ctx context.Context, shareId string) error {
	_, err := s.shares.UpdateOne(ctx,
		bson.M{"shareId": shareId},
		bson.M{
			"$inc": bson.M{"accessCount": 1},
			"$set": bson.M{"lastAccessed": time.Now().Unix()},
		})
	return err
}
