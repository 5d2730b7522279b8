package dispatch

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/filecoin-project/go-state-types/cbor"
)

// MethodSignature wraps a specific method and allows you to encode/decodes input/output bytes into concrete types.
type MethodSignature interface {
	// ArgNil returns a nil value of the method's argument type.
	ArgNil() reflect.Value
	// ArgInterface decodes raw params into a new value of the method's argument type.
	ArgInterface(argBytes []byte) (interface{}, error)
}

type methodSignature struct {
	method method
}

var _ MethodSignature = (*methodSignature)(nil)

func (ms *methodSignature) ArgNil() reflect.Value {
	t := ms.method.Type().In(1)
	return reflect.New(t).Elem()
}

func (ms *methodSignature) ArgInterface(argBytes []byte) (interface{}, error) {
	t := ms.method.Type().In(1)
	if t.Kind() != reflect.Ptr {
		return nil, fmt.Errorf("method argument %s must be a pointer", t)
	}
	v := reflect.New(t.Elem())
	obj := v.Interface()

	u, ok := obj.(cbor.Unmarshaler)
	if !ok {
		return nil, fmt.Errorf("method argument %s cannot be decoded from cbor", t)
	}
	if err := u.UnmarshalCBOR(bytes.NewReader(argBytes)); err != nil {
		return nil, err
	}
	return obj, nil
}
