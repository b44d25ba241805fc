// Package model holds the record types shared by the store, the access
// control and relay code, and the leveling engine.
//
// This package contains type definitions only. Every other internal package
// may import model; model imports nothing internal.
//
// Identifiers are platform snowflakes carried as strings. All JSON tags use
// snake_case.
package model
