// Package testutil opens a migrated, isolated in-memory sqlite database for
// package tests and provides row-level fixture helpers.
//
//	db := testutil.NewDB(t)
//	testutil.MustCreateUser(t, db, "ada")
//	testutil.AssertRowCount(t, db, "users", 1)
package testutil
