package partitions

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Reason string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("creation of partition store failed for reason : %s ", ve.Reason)
}

var (
	ErrNoEntry = errors.New("no entry found in partition")
)
