package shares

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/Marwan-Gama/Storify-sub001/items/items"
)

type SharePrototype struct {
	entities.Prototype

	ShareID         entities.Definable[string]         `bson:"shareId"`
	Owner           entities.Definable[string]         `bson:"owner"`
	ItemID          entities.Definable[string]         `bson:"itemId"`
	ItemType        entities.Definable[items.ItemType] `bson:"itemType"`
	SharedWithID    entities.Definable[string]         `bson:"sharedWithId"`
	SharedWithEmail entities.Definable[string]         `bson:"sharedWithEmail"`
	Permission      entities.Definable[Permission]     `bson:"permission"`
	IsPublic        entities.Definable[bool]           `bson:"isPublic"`
	PublicLink      entities.Definable[string]         `bson:"publicLink"`
	PasswordHash    entities.Definable[string]         `bson:"passwordHash" json:"-"`
	ExpiresAt       entities.Definable[int64]          `bson:"expiresAt"`
	IsActive        entities.Definable[bool]           `bson:"isActive"`
	AllowDownload   entities.Definable[bool]           `bson:"allowDownload"`
	AllowEdit       entities.Definable[bool]           `bson:"allowEdit"`
	AccessCount     entities.Definable[int64]          `bson:"accessCount"`
	LastAccessed    entities.Definable[int64]          `bson:"lastAccessed"`
	NotifyOnAccess  entities.Definable[bool]           `bson:"notifyOnAccess"`
	Created         entities.Definable[int64]          `bson:"created"`
}

// SetPassword hashes the given plain text link password and stores the
// hash. The plain text is never persisted.
func (p *SharePrototype) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash.Set(string(hash))
	return nil
}

type Share struct {
	ShareID string `bson:"shareId" json:"shareId"`
	Owner   string `bson:"owner" json:"owner"`
	// the shared file or folder
	ItemID   string         `bson:"itemId" json:"itemId"`
	ItemType items.ItemType `bson:"itemType" json:"itemType"`
	// grantee for private shares, empty for link-only shares
	SharedWithID    string `bson:"sharedWithId" json:"sharedWithId"`
	SharedWithEmail string `bson:"sharedWithEmail" json:"sharedWithEmail"`
	// strongest operation this share grants
	Permission Permission `bson:"permission" json:"permission"`
	IsPublic   bool       `bson:"isPublic" json:"isPublic"`
	// unguessable token, set iff the share is public
	PublicLink   string `bson:"publicLink" json:"publicLink"`
	PasswordHash string `bson:"passwordHash" json:"-"`
	// unix timestamp, 0 means the share never expires
	ExpiresAt int64 `bson:"expiresAt" json:"expiresAt"`
	IsActive  bool  `bson:"isActive" json:"isActive"`
	// AND-restrictions on top of Permission, never an expansion
	AllowDownload bool `bson:"allowDownload" json:"allowDownload"`
	AllowEdit     bool `bson:"allowEdit" json:"allowEdit"`
	// best-effort access telemetry
	AccessCount    int64 `bson:"accessCount" json:"accessCount"`
	LastAccessed   int64 `bson:"lastAccessed" json:"lastAccessed"`
	NotifyOnAccess bool  `bson:"notifyOnAccess" json:"notifyOnAccess"`
	Created        int64 `bson:"created" json:"created"`
}

type ShareEntity struct {
	Share

	Id primitive.ObjectID `bson:"_id"`
}

// IsExpired is true iff an expiry is set and now is strictly after it.
func (s *Share) IsExpired(now time.Time) bool {
	return s.ExpiresAt != 0 && now.Unix() > s.ExpiresAt
}

// CanAccess is the validity gate all access checks pass before any
// permission comparison. An inactive or expired share denies regardless
// of its nominal permission.
func (s *Share) CanAccess(now time.Time) bool {
	return s.IsActive && !s.IsExpired(now)
}

// HasPermission reports whether the share grants the required permission.
// Always false while CanAccess is false.
func (s *Share) HasPermission(required Permission, now time.Time) bool {
	if !s.CanAccess(now) {
		return false
	}
	return s.Permission.Covers(required)
}

func (s *Share) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(plain)) == nil
}

func (s *Share) ToPrototype(proto *SharePrototype) {
	proto.ShareID.Set(s.ShareID)
	proto.Owner.Set(s.Owner)
	proto.ItemID.Set(s.ItemID)
	proto.ItemType.Set(s.ItemType)
	proto.SharedWithID.Set(s.SharedWithID)
	proto.SharedWithEmail.Set(s.SharedWithEmail)
	proto.Permission.Set(s.Permission)
	proto.IsPublic.Set(s.IsPublic)
	proto.PublicLink.Set(s.PublicLink)
	proto.PasswordHash.Set(s.PasswordHash)
	proto.ExpiresAt.Set(s.ExpiresAt)
	proto.IsActive.Set(s.IsActive)
	proto.AllowDownload.Set(s.AllowDownload)
	proto.AllowEdit.Set(s.AllowEdit)
	proto.AccessCount.Set(s.AccessCount)
	proto.LastAccessed.Set(s.LastAccessed)
	proto.NotifyOnAccess.Set(s.NotifyOnAccess)
	proto.Created.Set(s.Created)
}
