// Package social manages friend requests and friendships between users.
// Accepting a request deletes it and creates the friendship in one
// transaction; friendships are stored once per pair.
package social
