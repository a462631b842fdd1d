package types

import "fmt"

func errInvalidTenant(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
