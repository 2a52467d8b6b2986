// Package validation checks request input.
//
// Struct tags cover request bodies; the same engine backs gin binding via
// GinValidator, with a custom "username" tag:
//
//	type signUpRequest struct {
//	    Username string `json:"username" validate:"required,username"`
//	}
//	err := validation.Validate(req)
//
// Path parameters and ad-hoc checks use the collecting Validator:
//
//	v := validation.New()
//	userID := v.ParseUUID("user_id", c.Param("user_id"))
//	if err := v.Err(); err != nil {
//	    return err
//	}
package validation
