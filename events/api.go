package events

import (
	"github.com/hamba/avro/v2"

	_ "embed"
)

//go:embed schema.avsc
var schema string

var Schema avro.Schema

var Api avro.API

func init() {
	Schema = avro.MustParse(schema)

	Api = avro.Config{
		UnionResolutionError:       true,
		PartialUnionTypeResolution: false,
	}.Freeze()

	Api.Register("storify.events.Event", Event{})
	Api.Register("storify.events.ShareAccessEvent", ShareAccessEvent{})
	Api.Register("storify.events.ShareChangedEvent", ShareChangedEvent{})
}

type Event struct {
	ID      string `avro:"id"`
	Version int    `avro:"version"`
}

// ShareAccessEvent is emitted after a successful share-mediated access
// for shares that request access notification. Consumers (mailer,
// activity feed) subscribe to ShareAccessTopic.
type ShareAccessEvent struct {
	Event

	ShareID    string `avro:"shareId"`
	ItemID     string `avro:"itemId"`
	ItemType   string `avro:"itemType"`
	UserID     string `avro:"userId"`
	Permission string `avro:"permission"`
	Public     bool   `avro:"public"`
	AccessTime int64  `avro:"accessTime"`
}

// ShareChangedEvent is emitted when a share is created, updated or
// deleted.
type ShareChangedEvent struct {
	Event

	ShareID   string `avro:"shareId"`
	Owner     string `avro:"owner"`
	Operation string `avro:"operation"`
}

func (e *ShareAccessEvent) Marshal() ([]byte, error) {
	return Api.Marshal(Schema, e)
}

func (e *ShareAccessEvent) Unmarshal(data []byte) error {
	return Api.Unmarshal(Schema, data, e)
}

func (e *ShareChangedEvent) Marshal() ([]byte, error) {
	return Api.Marshal(Schema, e)
}

func (e *ShareChangedEvent) Unmarshal(data []byte) error {
	return Api.Unmarshal(Schema, data, e)
}
