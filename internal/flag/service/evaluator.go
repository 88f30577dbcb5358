package service

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/flag/domain"
)

// IsEnabled walks the rule chain in strict order, first match wins:
//
//  1. missing flag or globally disabled  -> false
//  2. tenant on the deny list            -> false
//  3. tenant on the allow list           -> true
//  4. plan outside the entitled plans    -> false
//  5. rollout percentage below 100       -> bucket(tenant) < percentage
//  6. otherwise                          -> status == enabled
//
// Deny and allow overrides dominate population-level rollout so a single
// tenant can be forced on or off regardless of its bucket.
func (s *Service) IsEnabled(ctx context.Context, flagKey, tenantIdentifier, planName string) bool {
	flag, err := s.loadFlag(ctx, flagKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("flag lookup failed", zap.String("flag", flagKey), zap.Error(err))
		}
		s.metrics.RecordFlagEvaluation(flagKey, false)
		return false
	}

	enabled := evaluate(flag, tenantIdentifier, planName)
	s.metrics.RecordFlagEvaluation(flagKey, enabled)
	return enabled
}

func evaluate(flag *domain.Flag, tenantIdentifier, planName string) bool {
	if flag.Status == domain.StatusDisabled {
		return false
	}
	if slices.Contains(flag.DenyTenants, tenantIdentifier) {
		return false
	}
	if slices.Contains(flag.AllowTenants, tenantIdentifier) {
		return true
	}
	if planName != "" && len(flag.Plans) > 0 && !slices.Contains(flag.Plans, planName) {
		return false
	}
	if flag.RolloutPercentage != nil && *flag.RolloutPercentage < 100 {
		return rolloutBucket(tenantIdentifier) < *flag.RolloutPercentage
	}
	return flag.Status == domain.StatusEnabled
}

// rolloutBucket maps a tenant identifier to a stable 0-99 bucket. It is a
// pure function of the identifier string, so a tenant keeps its bucket
// across calls and process restarts.
func rolloutBucket(identifier string) int {
	sum := 0
	for _, r := range identifier {
		sum += int(r)
	}
	return sum % 100
}
