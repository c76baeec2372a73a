// Package tablesource implements the source side of a sync run on top of
// object storage. A table is a prefix of JSON page objects; fetching a table
// lists the prefix, downloads every page in name order and flattens the pages
// into one snapshot of records.
package tablesource
