package core

import (
	"reflect"

	"github.com/tiendc/go-deepcopy"
)

// CopyValue returns a structural copy of v: a by-value duplicate sharing no
// mutable memory with the original. Snapshots taken for rollback and values
// captured for dirty comparison must go through here, never through plain
// assignment.
func CopyValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	dst := reflect.New(reflect.TypeOf(v))
	if err := deepcopy.Copy(dst.Interface(), v); err != nil {
		return nil, err
	}
	return dst.Elem().Interface(), nil
}

// ValuesEqual reports deep structural equality.
func ValuesEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
