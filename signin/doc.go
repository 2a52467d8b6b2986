// Package signin composes provider verification, identity linking and
// session issuance into the two public operations, SignIn and SignUp.
//
// The provider is always consulted before the database, so a slow provider
// never holds a transaction open. Failures leave the package as
// *errors.AppError; an unknown identity or a taken username is not a
// failure but a Result with OutcomeNotRegistered and a suggested name.
package signin
