package kvstore

import "fmt"

// Key layout. The trailing separator on the prefix helpers is load-bearing:
// without it a scan for tenant "t1" would also match "t10".
const (
	tenantKeyspace = "tenant"
	usageKeyspace  = "usage"
	flagKeyspace   = "flag"
)

// TenantKey addresses the normalized tenant record by external code.
func TenantKey(externalCode string) string {
	return fmt.Sprintf("%s:%s", tenantKeyspace, externalCode)
}

// UsageKey addresses one (tenant, period, metric) ledger record.
func UsageKey(tenantID, period, metric string) string {
	return fmt.Sprintf("%s:%s:%s:%s", usageKeyspace, tenantID, period, metric)
}

// UsagePrefix matches every ledger record owned by a tenant.
func UsagePrefix(tenantID string) string {
	return fmt.Sprintf("%s:%s:", usageKeyspace, tenantID)
}

// FlagKey addresses a feature flag document.
func FlagKey(key string) string {
	return fmt.Sprintf("%s:%s", flagKeyspace, key)
}

// FlagPrefix matches every stored feature flag.
func FlagPrefix() string {
	return flagKeyspace + ":"
}
