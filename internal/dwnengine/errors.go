package dwnengine

import (
	"fmt"

	"github.com/ianpatton/dwn-go/dwn"
	"github.com/ianpatton/dwn-go/internal/dwnerrors"
)

func errMissingField(op, field string) error {
	return dwnerrors.Malformed(op+"MissingField",
		fmt.Sprintf("%s message is missing required field %q", op, field))
}

func errInconsistentData(detail string) error {
	return dwnerrors.Malformed("RecordsWriteInconsistentData", detail)
}

func errUnsupportedInterfaceMethod(iface dwn.Interface, method dwn.Method) error {
	return dwnerrors.Malformed("UnsupportedInterfaceMethod",
		fmt.Sprintf("no handler registered for interface %q method %q", iface, method))
}
