package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, praetor.ErrAccessDenied) || errors.Is(err, praetor.ErrRoleRequired) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
