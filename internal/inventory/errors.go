package inventory

import (
	appErrors "ipmitree/internal/errors"
)

func inventoryError(msg string, err error) error {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return appErrors.New(appErrors.CodeInventoryFailed, msg, err)
}
