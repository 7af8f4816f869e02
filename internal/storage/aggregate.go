package storage

import (
	"fmt"

	"cloud.google.com/go/firestore/apiv1/firestorepb"
)

// aggregateInt reads a count aggregation result. Depending on the client
// version it arrives as a raw int64 or as a protobuf value.
func aggregateInt(v interface{}) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case *firestorepb.Value:
		return val.GetIntegerValue(), nil
	case nil:
		return 0, fmt.Errorf("count aggregation result missing")
	default:
		return 0, fmt.Errorf("count aggregation result has unexpected type %T", v)
	}
}
