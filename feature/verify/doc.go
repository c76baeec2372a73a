// Package verify implements consistency checks over the destination store:
// the documents table schema, the single-latest rule of version lineages and
// the stored content checksums.
package verify
