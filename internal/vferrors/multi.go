package vferrors

import (
	"github.com/hashicorp/go-multierror"
)

func combine(errs []error) error {
	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = func(es []error) string {
		if len(es) == 1 {
			return es[0].Error()
		}
		buf := ""
		for i, e := range es {
			if i > 0 {
				buf += "\n"
			}
			buf += e.Error()
		}
		return buf
	}
	return result
}
