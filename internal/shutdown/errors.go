package shutdown

import (
	"fmt"

	appErrors "ipmitree/internal/errors"
)

func doubleShutdownError(pending int) error {
	return appErrors.New(appErrors.CodeDoubleShutdown,
		fmt.Sprintf("shutdown already in progress with %d resources outstanding", pending), nil)
}
