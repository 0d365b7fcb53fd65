package cli

import (
	"fmt"
	"regexp"

	clierrors "github.com/chupakbra/pxve-members/internal/errors"
)

var (
	useridRe  = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+@[a-zA-Z0-9_\-.]+$`)
	groupIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

func validateUserID(userid string) error {
	if !useridRe.MatchString(userid) {
		return fmt.Errorf("%w %q — must be in user@realm format (e.g. alice@pve, root@pam)", clierrors.ErrInvalidUserID, userid)
	}
	return nil
}

func validateGroupID(groupid string) error {
	if !groupIDRe.MatchString(groupid) {
		return fmt.Errorf("%w %q — must contain only letters, digits, hyphens, and underscores", clierrors.ErrInvalidGroupID, groupid)
	}
	return nil
}
