package priority

import "errors"

var (
	errNegativeWeight = errors.New("priority: weights must not be negative")
	errThresholdOrder = errors.New("priority: elevated_wsi must not exceed critical_wsi")
)
