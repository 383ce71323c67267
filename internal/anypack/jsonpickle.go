package anypack

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonBackend is the "jsonpickle" form: a JSON document wrapping the
// object graph together with a type tag so the reader can verify what it
// reconstructs.
type jsonBackend struct{}

func (b *jsonBackend) Name() string { return "jsonpickle" }

type jsonEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (b *jsonBackend) Pack(obj any) ([]byte, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrUnpackable)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("%w: %T has no inspectable attributes", ErrUnpackable, obj)
	}
	value, err := json.Marshal(rv.Interface())
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{Type: rv.Type().String(), Value: value})
}

func (b *jsonBackend) Unpack(data []byte, target any) error {
	var envelope jsonEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Value, target)
}
