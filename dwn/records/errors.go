package records

import (
	"fmt"

	"github.com/ianpatton/dwn-go/internal/dwnerrors"
)

func errNotFound(recordID string) error {
	return dwnerrors.New(dwnerrors.KindNotFound, "RecordNotFound",
		fmt.Sprintf("no RecordsWrite found for recordId %q", recordID))
}

func errInitialWriteCollision() error {
	return dwnerrors.New(dwnerrors.KindConflict, "InitialWriteCollision",
		"two distinct initial writes claim the same recordId")
}

func errMalformedMessage(detail string) error {
	return dwnerrors.New(dwnerrors.KindMalformed, "RecordsMalformedMessage", detail)
}
