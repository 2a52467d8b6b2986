// Package testutil starts an in-memory Redis (miniredis) and returns a
// connected client for package tests.
//
//	client, mini := testutil.NewClient(t)
//	mini.FastForward(2 * time.Minute)
package testutil
