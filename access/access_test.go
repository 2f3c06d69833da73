package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Marwan-Gama/Storify-sub001/items/items"
	"github.com/Marwan-Gama/Storify-sub001/shares/shares"
)

var now = time.Unix(1700000000, 0)

type fakeStore struct {
	items  map[string]*items.Item
	shares []shares.Share

	recorded  []string
	recordErr error
}

func (f *fakeStore) ResolveItem(ctx context.Context, itemId string, itemType items.ItemType) (*items.Item, error) {
	item := f.items[itemId]
	if item == nil || item.ItemType != itemType {
		return nil, nil
	}
	return item, nil
}

func (f *fakeStore) FindUserShares(ctx context.Context, itemId string, itemType items.ItemType, userId string, email string) ([]shares.Share, error) {
	result := make([]shares.Share, 0)
	for _, share := range f.shares {
		if share.ItemID != itemId || share.ItemType != itemType {
			continue
		}
		if (userId != "" && share.SharedWithID == userId) ||
			(email != "" && share.SharedWithEmail == email) {
			result = append(result, share)
		}
	}
	return result, nil
}

func (f *fakeStore) FindShareByPublicLink(ctx context.Context, token string) (*shares.Share, error) {
	for i := range f.shares {
		if f.shares[i].PublicLink == token && f.shares[i].PublicLink != "" {
			return &f.shares[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) RecordAccess(ctx context.Context, shareId string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, shareId)
	return nil
}

func testEvaluator(store *fakeStore, notify Notify) *Evaluator {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEvaluator(store, log, notify)
	e.now = func() time.Time { return now }
	return e
}

func testItem() *items.Item {
	return &items.Item{
		ItemID:   "item1",
		ItemType: items.ItemTypeFile,
		Owner:    "alice",
		Name:     "report.pdf",
	}
}

func check(permission shares.Permission) *CheckRequest {
	return &CheckRequest{
		ItemID:     "item1",
		ItemType:   items.ItemTypeFile,
		Permission: permission,
	}
}

func TestOwnerAlwaysAllowed(t *testing.T) {
	// even a revoked and expired share for the owner must not lock
	// the owner out
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:      "s1",
			ItemID:       "item1",
			ItemType:     items.ItemTypeFile,
			SharedWithID: "alice",
			Permission:   shares.PermissionView,
			IsActive:     false,
			ExpiresAt:    now.Add(-time.Hour).Unix(),
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionDownload)
	req.UserID = "alice"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
	assert.Nil(t, decision.Share)
	// ownership access is never accounted
	assert.Empty(t, store.recorded)
}

func TestMissingItem(t *testing.T) {
	store := &fakeStore{items: map[string]*items.Item{}}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "alice"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonItemNotFound, decision.Reason)
}

func TestSoftDeletedItemIsInvisible(t *testing.T) {
	item := testItem()
	item.Deleted = true
	store := &fakeStore{
		items: map[string]*items.Item{"item1": item},
		shares: []shares.Share{{
			ShareID:      "s1",
			ItemID:       "item1",
			ItemType:     items.ItemTypeFile,
			SharedWithID: "bob",
			Permission:   shares.PermissionDownload,
			IsActive:     true,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "bob"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonItemNotFound, decision.Reason)
}

func TestUserShareAllows(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:      "s1",
			ItemID:       "item1",
			ItemType:     items.ItemTypeFile,
			SharedWithID: "bob",
			Permission:   shares.PermissionEdit,
			IsActive:     true,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "bob"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
	assert.NotNil(t, decision.Share)
	assert.Equal(t, []string{"s1"}, store.recorded)
}

func TestUserShareByEmail(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:         "s1",
			ItemID:          "item1",
			ItemType:        items.ItemTypeFile,
			SharedWithEmail: "bob@example.com",
			Permission:      shares.PermissionView,
			IsActive:        true,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "bob"
	req.UserEmail = "bob@example.com"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
}

func TestEmailNeverDrivesABoundShare(t *testing.T) {
	// once a share is bound to a resolved user, a matching invite email
	// on the same record grants nothing to anyone else
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:         "s1",
			ItemID:          "item1",
			ItemType:        items.ItemTypeFile,
			SharedWithID:    "carol",
			SharedWithEmail: "bob@example.com",
			Permission:      shares.PermissionDownload,
			IsActive:        true,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "bob"
	req.UserEmail = "bob@example.com"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonForbidden, decision.Reason)
	assert.Empty(t, store.recorded)

	// the bound user keeps the grant
	req = check(shares.PermissionView)
	req.UserID = "carol"

	decision, err = e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
}

func TestExpiredUserShareDenies(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:      "s1",
			ItemID:       "item1",
			ItemType:     items.ItemTypeFile,
			SharedWithID: "bob",
			Permission:   shares.PermissionDownload,
			IsActive:     true,
			ExpiresAt:    now.Add(-time.Minute).Unix(),
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "bob"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonForbidden, decision.Reason)
	assert.Empty(t, store.recorded)
}

func TestSecondUserShareStillGrants(t *testing.T) {
	// an expired grant does not shadow a second, valid one
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{
			{
				ShareID:      "expired",
				ItemID:       "item1",
				ItemType:     items.ItemTypeFile,
				SharedWithID: "bob",
				Permission:   shares.PermissionDownload,
				IsActive:     true,
				ExpiresAt:    now.Add(-time.Minute).Unix(),
			},
			{
				ShareID:      "valid",
				ItemID:       "item1",
				ItemType:     items.ItemTypeFile,
				SharedWithID: "bob",
				Permission:   shares.PermissionView,
				IsActive:     true,
			},
		},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "bob"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, []string{"valid"}, store.recorded)
}

func TestAnonymousWithoutLinkIsForbidden(t *testing.T) {
	store := &fakeStore{items: map[string]*items.Item{"item1": testItem()}}
	e := testEvaluator(store, nil)

	decision, err := e.Evaluate(context.Background(), check(shares.PermissionView))

	assert.Nil(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonForbidden, decision.Reason)
}

func TestUnknownLink(t *testing.T) {
	store := &fakeStore{items: map[string]*items.Item{"item1": testItem()}}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.PublicLink = "nope"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonLinkNotFound, decision.Reason)
}

func TestLinkForDifferentItem(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:    "s1",
			ItemID:     "other",
			ItemType:   items.ItemTypeFile,
			IsPublic:   true,
			PublicLink: "token",
			Permission: shares.PermissionView,
			IsActive:   true,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.PublicLink = "token"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonLinkNotFound, decision.Reason)
}

func TestInactiveLink(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:    "s1",
			ItemID:     "item1",
			ItemType:   items.ItemTypeFile,
			IsPublic:   true,
			PublicLink: "token",
			Permission: shares.PermissionDownload,
			IsActive:   false,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.PublicLink = "token"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonLinkInactive, decision.Reason)
}

func TestExpiredLink(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:    "s1",
			ItemID:     "item1",
			ItemType:   items.ItemTypeFile,
			IsPublic:   true,
			PublicLink: "token",
			Permission: shares.PermissionDownload,
			IsActive:   true,
			ExpiresAt:  now.Add(-time.Second).Unix(),
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.PublicLink = "token"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonLinkInactive, decision.Reason)
}

func passwordShare(t *testing.T) shares.Share {
	proto := shares.SharePrototype{}
	err := proto.SetPassword("secret")
	assert.Nil(t, err)

	return shares.Share{
		ShareID:       "s1",
		ItemID:        "item1",
		ItemType:      items.ItemTypeFile,
		IsPublic:      true,
		PublicLink:    "token",
		PasswordHash:  proto.PasswordHash.Get(),
		Permission:    shares.PermissionEdit,
		IsActive:      true,
		AllowDownload: true,
		AllowEdit:     true,
	}
}

func TestLinkPasswordRequired(t *testing.T) {
	store := &fakeStore{
		items:  map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{passwordShare(t)},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.PublicLink = "token"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonPasswordRequired, decision.Reason)
}

func TestLinkPasswordIncorrect(t *testing.T) {
	store := &fakeStore{
		items:  map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{passwordShare(t)},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.PublicLink = "token"
	req.Password = "wrong"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonPasswordIncorrect, decision.Reason)
}

func TestLinkPasswordCorrect(t *testing.T) {
	store := &fakeStore{
		items:  map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{passwordShare(t)},
	}
	e := testEvaluator(store, nil)

	// edit rank covers the view request
	req := check(shares.PermissionView)
	req.PublicLink = "token"
	req.Password = "secret"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, []string{"s1"}, store.recorded)
}

func TestDownloadFlagGatesLink(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:       "s1",
			ItemID:        "item1",
			ItemType:      items.ItemTypeFile,
			IsPublic:      true,
			PublicLink:    "token",
			Permission:    shares.PermissionDownload,
			IsActive:      true,
			AllowDownload: false,
			AllowEdit:     true,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionDownload)
	req.PublicLink = "token"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)

	// the same share still serves a view request
	req = check(shares.PermissionView)
	req.PublicLink = "token"

	decision, err = e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
}

func TestEditFlagGatesLink(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:       "s1",
			ItemID:        "item1",
			ItemType:      items.ItemTypeFile,
			IsPublic:      true,
			PublicLink:    "token",
			Permission:    shares.PermissionDownload,
			IsActive:      true,
			AllowDownload: true,
			AllowEdit:     false,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionEdit)
	req.PublicLink = "token"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestLinkRankInsufficient(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:       "s1",
			ItemID:        "item1",
			ItemType:      items.ItemTypeFile,
			IsPublic:      true,
			PublicLink:    "token",
			Permission:    shares.PermissionView,
			IsActive:      true,
			AllowDownload: true,
			AllowEdit:     true,
		}},
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionDownload)
	req.PublicLink = "token"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, ReasonInsufficientPermission, decision.Reason)
}

func TestAccountingFailureDoesNotDeny(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:      "s1",
			ItemID:       "item1",
			ItemType:     items.ItemTypeFile,
			SharedWithID: "bob",
			Permission:   shares.PermissionView,
			IsActive:     true,
		}},
		recordErr: errors.New("database down"),
	}
	e := testEvaluator(store, nil)

	req := check(shares.PermissionView)
	req.UserID = "bob"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
}

func TestNotifyOnAccess(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:        "s1",
			ItemID:         "item1",
			ItemType:       items.ItemTypeFile,
			SharedWithID:   "bob",
			Permission:     shares.PermissionView,
			IsActive:       true,
			NotifyOnAccess: true,
		}},
	}

	notified := make([]string, 0)
	e := testEvaluator(store, func(share *shares.Share, req *CheckRequest) {
		notified = append(notified, share.ShareID)
	})

	req := check(shares.PermissionView)
	req.UserID = "bob"

	decision, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, []string{"s1"}, notified)
}

func TestNoNotifyWhenDisabled(t *testing.T) {
	store := &fakeStore{
		items: map[string]*items.Item{"item1": testItem()},
		shares: []shares.Share{{
			ShareID:      "s1",
			ItemID:       "item1",
			ItemType:     items.ItemTypeFile,
			SharedWithID: "bob",
			Permission:   shares.PermissionView,
			IsActive:     true,
		}},
	}

	notified := 0
	e := testEvaluator(store, func(share *shares.Share, req *CheckRequest) {
		notified++
	})

	req := check(shares.PermissionView)
	req.UserID = "bob"

	_, err := e.Evaluate(context.Background(), req)

	assert.Nil(t, err)
	assert.Equal(t, 0, notified)
}

func TestInvalidPermission(t *testing.T) {
	store := &fakeStore{items: map[string]*items.Item{"item1": testItem()}}
	e := testEvaluator(store, nil)

	req := check(shares.Permission("admin"))
	req.UserID = "alice"

	_, err := e.Evaluate(context.Background(), req)

	assert.ErrorIs(t, err, ErrInvalidPermission)
}
