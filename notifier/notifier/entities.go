package notifier

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Marwan-Gama/Storify-sub001/entities"
)

type NotificationPrototype struct {
	entities.Prototype

	Owner      entities.Definable[string] `bson:"owner"`
	ShareID    entities.Definable[string] `bson:"shareId"`
	ItemID     entities.Definable[string] `bson:"itemId"`
	ItemType   entities.Definable[string] `bson:"itemType"`
	UserID     entities.Definable[string] `bson:"userId"`
	Permission entities.Definable[string] `bson:"permission"`
	Public     entities.Definable[bool]   `bson:"public"`
	AccessTime entities.Definable[int64]  `bson:"accessTime"`
	Created    entities.Definable[int64]  `bson:"created"`
}

type Notification struct {
	Id         primitive.ObjectID `bson:"_id"`
	Owner      string             `bson:"owner"`
	ShareID    string             `bson:"shareId"`
	ItemID     string             `bson:"itemId"`
	ItemType   string             `bson:"itemType"`
	UserID     string             `bson:"userId"`
	Permission string             `bson:"permission"`
	Public     bool               `bson:"public"`
	AccessTime int64              `bson:"accessTime"`
	Created    int64              `bson:"created"`
}
