// Package syncapi exposes the sync engine over HTTP: triggering runs,
// previewing change sets and listing the available strategies.
package syncapi
