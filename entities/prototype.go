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

package entities

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
)

// Prototype is embedded in partial-record structs. Call MakePrototype
// on a pointer to such a struct before use; this installs the JSON
// marshaling that skips undefined fields.
type Prototype interface {
	json.Marshaler
	json.Unmarshaler
	isPrototype()
}

var prototypeType = reflect.TypeOf((*Prototype)(nil)).Elem()

type prototypeImpl struct {
	self any
}

func (p *prototypeImpl) isPrototype() {}

// MakePrototype prepares proto for JSON round trips. It must be called
// with a pointer value.
func MakePrototype[T Prototype](proto T) T {
	val := reflect.ValueOf(proto)
	if val.Kind() != reflect.Pointer {
		panic(errors.New("MakePrototype must be called with pointer value"))
	}
	elem := val.Elem()
	typ := elem.Type()

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous && field.Type == prototypeType {
			elem.Field(i).Set(reflect.ValueOf(&prototypeImpl{self: proto}))
			return proto
		}
	}
	panic(errors.New("prototype struct must embed entities.Prototype"))
}

func (p *prototypeImpl) MarshalJSON() ([]byte, error) {
	t := reflect.TypeOf(p.self)
	v := reflect.ValueOf(p.self)

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		v = v.Elem()
	}

	m := make(map[string]any)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}

		fieldValue := v.Field(i)
		if safeIsNil(fieldValue) {
			continue
		}
		fieldValueInterface := fieldValue.Interface()

		if def, ok := fieldValueInterface.(definableInternal); ok {
			if val, defined := def.getInternal(); defined {
				m[jsonFieldName(field)] = val
			}
		} else {
			m[jsonFieldName(field)] = fieldValueInterface
		}
	}

	return json.Marshal(m)
}

func (p *prototypeImpl) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t := reflect.TypeOf(p.self)
	v := reflect.ValueOf(p.self)

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		v = v.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}

		value, present := raw[jsonFieldName(field)]
		if !present {
			continue
		}

		getter, ok := v.Field(i).Interface().(definableInternal)
		if !ok {
			if err := json.Unmarshal(value, v.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		target := reflect.New(getter.getType())
		if err := json.Unmarshal(value, target.Interface()); err != nil {
			return err
		}
		v.Field(i).Addr().Interface().(definableSetter).setInternal(target.Elem().Interface(), true)
	}

	return nil
}

// jsonFieldName resolves the wire name of a prototype field: the json
// tag if present, else the bson tag, else the field name with its
// first rune lowercased.
func jsonFieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	if tag := field.Tag.Get("bson"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	r, size := utf8.DecodeRuneInString(field.Name)
	return string(unicode.ToLower(r)) + field.Name[size:]
}

// ToBson renders the defined fields of a prototype as a flat bson.M,
// suitable as a find filter or $set document.
func ToBson(p Prototype) bson.M {
	t := reflect.TypeOf(p)
	v := reflect.ValueOf(p)

	if t.Kind() == reflect.Pointer {
		t = t.Elem()
		v = v.Elem()
	}

	ret := bson.M{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}

		fieldValue := v.Field(i)
		fieldIsNil := safeIsNil(fieldValue)
		fieldValueInterface := fieldValue.Interface()

		fieldName := bsonFieldName(field)

		if def, ok := fieldValueInterface.(definableInternal); ok {
			if fieldIsNil {
				continue
			}
			if val, defined := def.getInternal(); defined {
				ret[fieldName] = val
			}
		} else {
			ret[fieldName] = fieldValueInterface
		}
	}

	return ret
}

func bsonFieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("bson"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(field.Name)
}

func safeIsNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Pointer, reflect.UnsafePointer, reflect.Interface, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
