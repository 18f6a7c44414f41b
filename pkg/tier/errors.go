package tier

import "errors"

var (
	ErrFreeTierMissing          = errors.New("tier catalog has no free tier")
	ErrUnknownTier              = errors.New("unknown tier")
	ErrInvalidTierConfiguration = errors.New("invalid tier configuration")
	ErrInvalidPlanConfiguration = errors.New("invalid plan configuration")
	ErrPlanNotFound             = errors.New("plan not found")
	ErrFailedToLoadCatalog      = errors.New("failed to load tier catalog")
)
