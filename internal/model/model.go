// Package model holds the records that flow through the indexing pipeline.
package model

import "strings"

// NameKind selects which directory listing endpoint to enumerate.
type NameKind string

const (
	// KindNames enumerates primary registered names.
	KindNames NameKind = "names"
	// KindSubdomains enumerates subordinate names under registered names.
	KindSubdomains NameKind = "subdomains"
)

// Profile is the untrusted nested document returned by the lookup service
// for one name. Its schema is not ours to guarantee.
type Profile = map[string]any

// ResolvedEntry pairs an enumerated name with its resolved profile. Entries
// are transient: they live in memory or in a dump file, never in the store.
type ResolvedEntry struct {
	FullyQualifiedName string  `json:"fullyQualifiedName"`
	Profile            Profile `json:"profile"`
}

// NamespaceRecord is the normalized durable record, keyed by Username.
type NamespaceRecord struct {
	Username           string  `json:"username"`
	FullyQualifiedName string  `json:"fullyQualifiedName"`
	Profile            Profile `json:"profile"`
}

// SearchProfileRecord is the denormalized record backing search lookups.
// Nullable fields stay nil when the profile carries no such entry.
type SearchProfileRecord struct {
	Name               *string `json:"name"`
	Profile            Profile `json:"profile"`
	OpenBazaarHandle   *string `json:"openbazaarHandle"`
	TwitterHandle      *string `json:"twitterHandle"`
	Username           string  `json:"username"`
	FullyQualifiedName string  `json:"fullyQualifiedName"`
}

// RecordError pairs a record identifier with the error that caused the
// record to be skipped during bulk processing.
type RecordError struct {
	ID  string
	Err error
}

// idSuffix is the one namespace suffix stripped when deriving usernames.
const idSuffix = ".id"

// UsernameFor derives the storage key for a fully qualified name: one
// trailing ".id" suffix is stripped; any other suffix is kept as-is.
func UsernameFor(fullyQualifiedName string) string {
	return strings.TrimSuffix(fullyQualifiedName, idSuffix)
}
