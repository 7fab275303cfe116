package azstore

import (
	"sort"
	"strings"
)

const (
	// metadataHeaderPrefix marks the service headers that participate in
	// canonicalization.
	metadataHeaderPrefix = "x-ms-"
	// developmentAccountName is the fixed well-known account of the local
	// storage emulator.
	developmentAccountName = "devstoreaccount1"
	// secondaryAccountSuffix marks a secondary read endpoint; requests against
	// it still sign under the primary account identity.
	secondaryAccountSuffix = "-secondary"
)

// CanonicalizedHeaders builds the canonical header string: every header whose
// name starts (case-insensitively) with "x-ms-" is lower-cased, the entries
// are sorted lexicographically by the lower-cased name, and joined as
// "name:value" lines. The result is empty when no such headers exist.
//
// The service recomputes this exact string during authentication, so the
// output is byte-exact: no trailing newline, plain string sort.
func CanonicalizedHeaders(headers *Headers) string {
	type pair struct{ key, value string }
	var pairs []pair
	headers.Each(func(name, value string) {
		lower := strings.ToLower(strings.TrimSpace(name))
		if strings.HasPrefix(lower, metadataHeaderPrefix) {
			pairs = append(pairs, pair{key: lower, value: value})
		}
	})
	if len(pairs) == 0 {
		return ""
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.key)
		b.WriteString(":")
		b.WriteString(p.value)
	}
	return b.String()
}

// PrimaryAccountName strips one trailing "-secondary" suffix from an account
// name. Secondary read endpoints authenticate under the primary account.
func PrimaryAccountName(accountName string) string {
	return strings.TrimSuffix(accountName, secondaryAccountSuffix)
}

// CanonicalizedResource builds the canonical resource string: "/" plus the
// primary account name plus the request path, with query parameters (when
// any) appended as sorted "key:value" lines. When developmentStorage is set
// the path is additionally prefixed with the emulator's fixed account
// segment, matching the URL shape the emulator serves.
//
// Query pairs sort by key, ties broken by the full pair, so any permutation
// of the same parameters canonicalizes to the identical string.
func CanonicalizedResource(accountName, path string, query []QueryParam, developmentStorage bool) string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(PrimaryAccountName(accountName))
	if developmentStorage {
		b.WriteString("/")
		b.WriteString(developmentAccountName)
	}
	b.WriteString(path)

	if len(query) == 0 {
		return b.String()
	}

	sorted := make([]QueryParam, len(query))
	copy(sorted, query)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Key != sorted[j].Key {
			return sorted[i].Key < sorted[j].Key
		}
		return sorted[i].Value < sorted[j].Value
	})

	for _, p := range sorted {
		b.WriteString("\n")
		b.WriteString(p.Key)
		b.WriteString(":")
		b.WriteString(p.Value)
	}
	return b.String()
}
