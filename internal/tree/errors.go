package tree

import (
	"fmt"

	appErrors "ipmitree/internal/errors"
)

func notFoundError(id ID) error {
	return appErrors.New(appErrors.CodeNotFound, fmt.Sprintf("node %q not found", id), nil)
}

func duplicateNodeError(id ID) error {
	return appErrors.New(appErrors.CodeDuplicateNode, fmt.Sprintf("node %q already exists", id), nil)
}

func invalidMoveError(reason string) error {
	return appErrors.New(appErrors.CodeInvalidMove, reason, nil)
}

func invalidArgumentError(reason string) error {
	return appErrors.New(appErrors.CodeInvalidArgument, reason, nil)
}

func invariantViolationError(v Violation) error {
	return appErrors.New(appErrors.CodeInvariantViolation, v.String(), nil)
}
