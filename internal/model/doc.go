// Package model defines the records that describe one redirect resolution run.
//
// A RunReport is what the report writers render and what the database stores.
// It is built from a redirect.Result and carries no network state, so it
// can be serialized to JSON as-is.
package model
