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

// Package access decides whether a principal may perform an operation on
// a shared file or folder. The decision rules are evaluated strictly in
// order: soft-delete check, ownership bypass, user shares, public link,
// and finally a catch-all deny. Every deny carries a machine-readable
// reason so the gateway can map it to a proper status code without
// re-deriving the cause.
package access

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Marwan-Gama/Storify-sub001/items/items"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
)

const (
	// item missing or soft-deleted
	ReasonItemNotFound = "item_not_found"
	// unknown public token or token for a different item
	ReasonLinkNotFound = "link_not_found"
	// share deactivated or expired
	ReasonLinkInactive      = "link_inactive"
	ReasonPasswordRequired  = "password_required"
	ReasonPasswordIncorrect = "password_incorrect"
	// rank too low or a restriction flag disabled
	ReasonInsufficientPermission = "insufficient_permission"
	// no rule applied
	ReasonForbidden = "forbidden"
)

var ErrInvalidPermission = errors.New("invalid permission")

// Store is the persistence surface the evaluator depends on.
type Store interface {
	// ResolveItem returns nil when the id does not exist for that type.
	// Soft-deleted items are returned with Deleted set, the evaluator
	// decides their visibility.
	ResolveItem(ctx context.Context, itemId string, itemType items.ItemType) (*items.Item, error)

	// FindUserShares returns all shares of the item granted to the given
	// user id or email.
	FindUserShares(ctx context.Context, itemId string, itemType items.ItemType, userId string, email string) ([]shares.Share, error)

	// FindShareByPublicLink returns nil when no share carries the token.
	FindShareByPublicLink(ctx context.Context, token string) (*shares.Share, error)

	// RecordAccess bumps the share's access counter and timestamp as a
	// single atomic update.
	RecordAccess(ctx context.Context, shareId string) error
}

type CheckRequest struct {
	ItemID   string         `json:"itemId"`
	ItemType items.ItemType `json:"itemType"`

	// authenticated principal, empty for anonymous callers
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`

	// public-link context
	PublicLink string `json:"publicLink"`
	Password   string `json:"password"`

	Permission shares.Permission `json:"permission"`
}

type Decision struct {
	Allowed bool `json:"allowed"`
	// set iff Allowed is false
	Reason string `json:"reason"`
	// the share that mediated the allow, nil for owner access
	Share *shares.Share `json:"share"`
}

func allow(share *shares.Share) Decision {
	return Decision{Allowed: true, Share: share}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Notify is called after a successful share-mediated access to a share
// that requests access notification.
type Notify func(share *shares.Share, req *CheckRequest)

type Evaluator struct {
	store  Store
	log    *slog.Logger
	notify Notify
	now    func() time.Time
}

func NewEvaluator(store Store, log *slog.Logger, notify Notify) *Evaluator {
	return &Evaluator{
		store:  store,
		log:    log,
		notify: notify,
		now:    time.Now,
	}
}

// Evaluate applies the access rules in order, first match wins. A non-nil
// error means the decision could not be made at all (store failure), not
// that access was denied.
func (e *Evaluator) Evaluate(ctx context.Context, req *CheckRequest) (Decision, error) {
	if !req.Permission.Valid() {
		return Decision{}, ErrInvalidPermission
	}
	now := e.now()

	item, err := e.store.ResolveItem(ctx, req.ItemID, req.ItemType)
	if err != nil {
		return Decision{}, err
	}

	// soft-deleted items are invisible to ordinary access
	if item == nil || item.Deleted {
		return deny(ReasonItemNotFound), nil
	}

	// owners bypass share evaluation entirely, a revoked or expired
	// share must never lock an owner out of their own item
	if req.UserID != "" && req.UserID == item.Owner {
		return allow(nil), nil
	}

	if req.UserID != "" || req.UserEmail != "" {
		userShares, err := e.store.FindUserShares(ctx, req.ItemID, req.ItemType, req.UserID, req.UserEmail)
		if err != nil {
			return Decision{}, err
		}
		for i := range userShares {
			share := &userShares[i]
			// a share bound to a resolved user only grants to that user,
			// the invite email stops driving once the id is set
			if share.SharedWithID != "" && share.SharedWithID != req.UserID {
				continue
			}
			if share.HasPermission(req.Permission, now) {
				e.allowed(ctx, share, req)
				return allow(share), nil
			}
		}
		// an unusable grant falls through to the link rule
	}

	if req.PublicLink != "" {
		share, err := e.store.FindShareByPublicLink(ctx, req.PublicLink)
		if err != nil {
			return Decision{}, err
		}
		if share == nil || share.ItemID != req.ItemID || share.ItemType != req.ItemType {
			return deny(ReasonLinkNotFound), nil
		}
		if !share.CanAccess(now) {
			return deny(ReasonLinkInactive), nil
		}
		if share.PasswordHash != "" {
			if req.Password == "" {
				return deny(ReasonPasswordRequired), nil
			}
			if !share.CheckPassword(req.Password) {
				return deny(ReasonPasswordIncorrect), nil
			}
		}
		if !share.HasPermission(req.Permission, now) {
			return deny(ReasonInsufficientPermission), nil
		}
		// the flags restrict specific operations on top of the rank
		if req.Permission == shares.PermissionDownload && !share.AllowDownload {
			return deny(ReasonInsufficientPermission), nil
		}
		if req.Permission == shares.PermissionEdit && !share.AllowEdit {
			return deny(ReasonInsufficientPermission), nil
		}
		e.allowed(ctx, share, req)
		return allow(share), nil
	}

	return deny(ReasonForbidden), nil
}

// allowed runs the best-effort bookkeeping after a share-mediated allow.
// Failures are logged and swallowed, accounting is telemetry, not part
// of the trust decision.
func (e *Evaluator) allowed(ctx context.Context, share *shares.Share, req *CheckRequest) {
	if err := e.store.RecordAccess(ctx, share.ShareID); err != nil {
		e.log.Error("failed to record share access", "error", err, "shareId", share.ShareID)
	}
	if share.NotifyOnAccess && e.notify != nil {
		e.notify(share, req)
	}
}
