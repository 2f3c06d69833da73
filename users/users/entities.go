package users

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marwan-Gama/Storify-sub001/entities"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	TierFree    = "free"
	TierPremium = "premium"
)

type UserPrototype struct {
	entities.Prototype

	UserID       entities.Definable[string] `bson:"userId"`
	Email        entities.Definable[string] `bson:"email"`
	Name         entities.Definable[string] `bson:"name"`
	PasswordHash entities.Definable[string] `bson:"passwordHash" json:"-"`
	Role         entities.Definable[string] `bson:"role"`
	Tier         entities.Definable[string] `bson:"tier"`
	StorageUsed  entities.Definable[int64]  `bson:"storageUsed"`
	Created      entities.Definable[int64]  `bson:"created"`
}

// SetPassword hashes the given plain text password and stores the hash.
// The plain text is never persisted.
func (p *UserPrototype) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash.Set(string(hash))
	return nil
}

type User struct {
	UserID       string `bson:"userId" json:"userId"`
	Email        string `bson:"email" json:"email"`
	Name         string `bson:"name" json:"name"`
	PasswordHash string `bson:"passwordHash" json:"-"`
	Role         string `bson:"role" json:"role"`
	Tier         string `bson:"tier" json:"tier"`
	// total size in bytes of the user's stored files
	StorageUsed int64 `bson:"storageUsed" json:"storageUsed"`
	Created     int64 `bson:"created" json:"created"`
}

type UserEntity struct {
	User

	Id primitive.ObjectID `bson:"_id"`
}

func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

func (u *User) ToPrototype(proto *UserPrototype) {
	proto.UserID.Set(u.UserID)
	proto.Email.Set(u.Email)
	proto.Name.Set(u.Name)
	proto.PasswordHash.Set(u.PasswordHash)
	proto.Role.Set(u.Role)
	proto.Tier.Set(u.Tier)
	proto.StorageUsed.Set(u.StorageUsed)
	proto.Created.Set(u.Created)
}
