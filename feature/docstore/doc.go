// Package docstore implements the destination document store on MySQL. Each
// collection is a partition of one documents table keyed by (collection,
// doc_id); fields are stored as canonical JSON and version lineage lives in
// the version_id and is_latest columns.
package docstore
