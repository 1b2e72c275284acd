package usecasekit

import (
	"fmt"
	"strings"
	"time"
)

// Key scheme for the single-table layout.
//
//	owner key: useCase#{userID}          (body and association items alike)
//	sort key:  {relationKind}#{unixNano}  (zero padded, so lexical order is time order)
//
// UserIDFromOwnerKey is the only way ownership is established, so the owner
// key format must not change without migrating the table.

const (
	keySeparator   = "#"
	ownerKeyPrefix = "useCase"
)

// OwnerKey builds the partition key for a user
func OwnerKey(userID string) string {
	return ownerKeyPrefix + keySeparator + userID
}

// UserIDFromOwnerKey strips the entity prefix. Every segment after the first is
// kept, so user ids that contain the separator survive the round trip.
func UserIDFromOwnerKey(ownerKey string) string {
	_, userID, found := strings.Cut(ownerKey, keySeparator)
	if !found {
		return ""
	}
	return userID
}

// SortKey builds a sort key for kind at instant t
func SortKey(kind RelationKind, t time.Time) string {
	return fmt.Sprintf("%s%s%019d", kind, keySeparator, t.UnixNano())
}

// SortKeyPrefix is used for begins_with range conditions on a relation kind
func SortKeyPrefix(kind RelationKind) string {
	return string(kind) + keySeparator
}

// KindOf returns the relation kind encoded in a sort key
func KindOf(sortKey string) RelationKind {
	kind, _, _ := strings.Cut(sortKey, keySeparator)
	return RelationKind(kind)
}
