package recommendation

import "errors"

var (
	errOracleDisabled = errors.New("oracle not configured")
	errOracleEmpty    = errors.New("oracle returned no usable funds")
)
