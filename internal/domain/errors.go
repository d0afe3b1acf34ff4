package domain

import (
	"fmt"

	appErrors "ipmitree/internal/errors"
)

func invalidLevelError(level string) error {
	return appErrors.New(appErrors.CodeInvalidLevel, fmt.Sprintf("invalid severity level: %s", level), nil)
}
