// Package services contains the server-side business logic: credential
// lifecycle in UserService and person records in PersonService.
package services

import (
	"fmt"

	"github.com/dmitrijs2005/profilekeeper/internal/common"
)

// Typed outcomes returned by the services. Each wraps a sentinel from
// internal/common so transports can map them with errors.Is.
var (
	ErrUsernameTaken      = fmt.Errorf("username %w", common.ErrorConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", common.ErrorUnauthorized)
	ErrUserNotFound       = fmt.Errorf("user %w", common.ErrorNotFound)
	ErrPersonNotFound     = fmt.Errorf("person %w", common.ErrorNotFound)
	ErrPhotoNotFound      = fmt.Errorf("photo %w", common.ErrorNotFound)

	ErrUpdateOthers    = fmt.Errorf("%w: you can only update your own information", common.ErrorForbidden)
	ErrDeleteOthers    = fmt.Errorf("%w: you can only delete your own information", common.ErrorForbidden)
	ErrAdminOnly       = fmt.Errorf("%w: only admins can manage user accounts", common.ErrorForbidden)
	ErrAdminSelfDelete = fmt.Errorf("%w: admins cannot delete their own account", common.ErrorForbidden)
)
