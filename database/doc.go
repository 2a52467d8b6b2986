// Package database is the gorm-backed persistence layer shared by the
// identity and social packages.
//
// Open connects with retry to postgres (production) or sqlite (tests and
// local runs), Component wraps it for the lifecycle registry and applies the
// embedded migrations from database/migration on start. Driver errors are
// never translated by gorm: AsUniqueViolation reads the violated table and
// columns straight from the pgconn or sqlite3 error so callers can tell a
// taken username from an identity that is already linked.
//
//	comp := database.NewComponent(database.Config{URL: os.Getenv("DATABASE_URL")}, log)
//	if err := comp.Start(ctx); err != nil { ... }
//	users := identity.NewLinker(comp.DB())
package database
