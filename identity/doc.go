// Package identity stores local users and the provider identities linked to
// them.
//
// Sign-in looks a verified identity up with FindLinkedUser and refreshes the
// provider-owned profile fields; sign-up creates the user and its link in
// one transaction with LinkNewUser. Username collisions are detected from
// the unique-constraint violation itself, so two concurrent sign-ups for the
// same name cannot both succeed.
package identity
