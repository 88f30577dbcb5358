package limits

import (
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/innkeephq/innkeep/internal/plan/domain"
)

// LimitProfiles maps plan name to metric quotas for one billing period.
type LimitProfiles map[string]map[string]float64

// DefaultLimitProfiles returns the built-in quota table used when neither the
// plan catalog row nor plans.yml declares a value.
func DefaultLimitProfiles() LimitProfiles {
	return LimitProfiles{
		domain.PlanBasic: {
			"api_calls":    10_000,
			"bookings":     200,
			"rooms":        25,
			"sms_messages": 100,
			"storage_mb":   512,
		},
		domain.PlanStandard: {
			"api_calls":    50_000,
			"bookings":     1_000,
			"rooms":        100,
			"sms_messages": 500,
			"storage_mb":   2_048,
		},
		domain.PlanPremium: {
			"api_calls":    250_000,
			"bookings":     5_000,
			"rooms":        500,
			"sms_messages": 2_500,
			"storage_mb":   10_240,
		},
		domain.PlanEnterprise: {
			"api_calls":    1_000_000,
			"bookings":     50_000,
			"rooms":        5_000,
			"sms_messages": 25_000,
			"storage_mb":   51_200,
		},
	}
}

// Holder serves the current profiles and hot-reloads plans.yml.
type Holder struct {
	current atomic.Value // holds LimitProfiles
}

// NewHolder loads plans.yml when present, otherwise the built-in
// defaults, and watches the file for changes.
func NewHolder(log *zap.Logger) (*Holder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/innkeep/config") // Volume-mounted config
	v.AddConfigPath("/etc/innkeep")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("INNKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &Holder{}
	holder.current.Store(DefaultLimitProfiles())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file; built-in defaults stay active.
		return holder, nil
	}

	if profiles, err := decodeProfiles(v); err != nil {
		log.Warn("invalid plans.yml, keeping defaults", zap.Error(err))
	} else {
		holder.current.Store(profiles)
	}

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		profiles, err := decodeProfiles(v)
		if err != nil {
			log.Warn("plans.yml reload rejected", zap.Error(err))
			return
		}
		holder.current.Store(profiles)
		log.Info("plan limit profiles reloaded")
	})

	return holder, nil
}

// Profiles returns the active limit table.
func (h *Holder) Profiles() LimitProfiles {
	if h == nil {
		return DefaultLimitProfiles()
	}
	if profiles, ok := h.current.Load().(LimitProfiles); ok {
		return profiles
	}
	return DefaultLimitProfiles()
}

func decodeProfiles(v *viper.Viper) (LimitProfiles, error) {
	var raw map[string]map[string]float64
	if err := v.UnmarshalKey("limits", &raw); err != nil {
		return nil, err
	}

	profiles := DefaultLimitProfiles()
	for planName, metrics := range raw {
		planName = strings.ToLower(strings.TrimSpace(planName))
		if planName == "" {
			continue
		}
		if profiles[planName] == nil {
			profiles[planName] = map[string]float64{}
		}
		for metric, limit := range metrics {
			profiles[planName][metric] = limit
		}
	}
	return profiles, nil
}
