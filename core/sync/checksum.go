package sync

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"docsync/core/value"
)

// Checksum computes the content hash of a field map. It is a pure function of
// the fields: insertion order never matters, and excluded fields (plus any
// document metadata, which is not part of the field map at all) do not
// contribute. Structurally different values, such as the number 1 and the
// string "1", hash differently.
func Checksum(fields value.Object, exclude map[string]struct{}) (string, error) {
	subject := fields
	if len(exclude) > 0 {
		subject = make(value.Object, len(fields))
		for k, v := range fields {
			if _, skip := exclude[k]; !skip {
				subject[k] = v
			}
		}
	}

	data, err := value.MarshalCanonical(subject)
	if err != nil {
		return "", err
	}

	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}

// AggregateChecksum combines per-record checksums keyed by primary key into a
// single order-independent hash for whole-set change detection. The pairs are
// rendered as sorted "key=checksum" lines and hashed together, so any record
// change, addition, removal or rename changes the aggregate.
func AggregateChecksum(pairs map[string]string) string {
	lines := make([]string, 0, len(pairs))
	for pk, sum := range pairs {
		lines = append(lines, pk+"="+sum)
	}
	sort.Strings(lines)

	sum := md5.Sum([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
