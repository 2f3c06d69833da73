package entities_test

import (
	"encoding/json"
	"testing"

	"github.com/Marwan-Gama/Storify-sub001/entities"
	"github.com/stretchr/testify/assert"
)

type TestProto struct {
	entities.Prototype

	StringProp entities.Definable[string]
	NumberProp entities.Definable[int]
	FloatProp  entities.Definable[float64]

	StructProp entities.Definable[TestRecord]

	SliceProp       entities.Definable[[]string]
	SliceStructProp entities.Definable[[]TestRecord]
}

type TestRecord struct {
	Value string
}

type TaggedProto struct {
	entities.Prototype

	ShareID entities.Definable[string] `bson:"shareId"`
	Owner   entities.Definable[string] `bson:"owner" json:"ownerId"`
}

func TestPanicNonPointer(t *testing.T) {
	assert.PanicsWithError(t, "MakePrototype must be called with pointer value", func() {
		entities.MakePrototype(TestProto{})
	})
}

func TestMarshal(t *testing.T) {
	testProto := entities.MakePrototype(&TestProto{})
	testProto.StringProp.Set("Hello, World")
	testProto.NumberProp.Set(21)
	testProto.FloatProp.Set(21.3)
	testProto.SliceProp.Set([]string{"foo", "bar"})

	data, err := json.Marshal(testProto)
	str := string(data)

	assert.Nil(t, err)
	assert.Equal(t, "{\"floatProp\":21.3,\"numberProp\":21,\"sliceProp\":[\"foo\",\"bar\"],\"stringProp\":\"Hello, World\"}", str)
}

func TestMarshalEmpty(t *testing.T) {
	testProto := entities.MakePrototype(&TestProto{})

	data, err := json.Marshal(testProto)
	str := string(data)

	assert.Nil(t, err)
	assert.Equal(t, "{}", str)
}

func TestMarshalTagged(t *testing.T) {
	proto := entities.MakePrototype(&TaggedProto{})
	proto.ShareID.Set("abc")
	proto.Owner.Set("user1")

	data, err := json.Marshal(proto)

	assert.Nil(t, err)
	assert.Equal(t, "{\"ownerId\":\"user1\",\"shareId\":\"abc\"}", string(data))
}

func TestUnmarshalProp(t *testing.T) {
	testProto := entities.MakePrototype(&TestProto{})

	jsonString := "{ \"stringProp\": \"testValue\", \"numberProp\": 42, \"floatProp\": 42.5, \"sliceProp\": [\"foo\", \"bar\"] }"

	err := json.Unmarshal([]byte(jsonString), &testProto)

	assert.Nil(t, err)
	assert.True(t, testProto.StringProp.IsDefined())
	assert.Equal(t, "testValue", testProto.StringProp.Get())
	assert.True(t, testProto.NumberProp.IsDefined())
	assert.Equal(t, 42, testProto.NumberProp.Get())
	assert.True(t, testProto.FloatProp.IsDefined())
	assert.Equal(t, 42.5, testProto.FloatProp.Get())
	assert.True(t, testProto.SliceProp.IsDefined())
	assert.Equal(t, []string{"foo", "bar"}, testProto.SliceProp.Get())
	assert.False(t, testProto.StructProp.IsDefined())
}

func TestUnmarshalEmpty(t *testing.T) {
	testProto := entities.MakePrototype(&TestProto{})

	jsonString := "{}"

	err := json.Unmarshal([]byte(jsonString), &testProto)

	assert.Nil(t, err)
	assert.False(t, testProto.StringProp.IsDefined())
	assert.False(t, testProto.NumberProp.IsDefined())
	assert.False(t, testProto.FloatProp.IsDefined())
	assert.False(t, testProto.SliceProp.IsDefined())
}

func TestUnmarshalStruct(t *testing.T) {
	testProto := entities.MakePrototype(&TestProto{})

	jsonString := "{ \"structProp\": { \"Value\": \"nested\" }, \"sliceStructProp\": [{ \"Value\": \"a\" }, { \"Value\": \"b\" }] }"

	err := json.Unmarshal([]byte(jsonString), &testProto)

	assert.Nil(t, err)
	assert.True(t, testProto.StructProp.IsDefined())
	assert.Equal(t, TestRecord{Value: "nested"}, testProto.StructProp.Get())
	assert.True(t, testProto.SliceStructProp.IsDefined())
	assert.Equal(t, []TestRecord{{Value: "a"}, {Value: "b"}}, testProto.SliceStructProp.Get())
}

func TestToBson(t *testing.T) {
	proto := entities.MakePrototype(&TaggedProto{})
	proto.ShareID.Set("abc")

	m := entities.ToBson(proto)

	assert.Len(t, m, 1)
	assert.Equal(t, "abc", m["shareId"])
}
