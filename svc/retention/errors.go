package retention

import "errors"

var (
	ErrInvalidPlan  = errors.New("invalid retention plan")
	ErrPlanNotFound = errors.New("no plan assigned to account")
)
