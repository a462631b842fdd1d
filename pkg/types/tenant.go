package types

import "time"

// DeploymentMode controls how a tenant's data-plane resources are
// provisioned (spec.md 3, GLOSSARY).
type DeploymentMode string

const (
	ModeIsolated DeploymentMode = "isolated"
	ModeShared   DeploymentMode = "shared"
	ModeMixed    DeploymentMode = "mixed"
)

// Tier is the commercial tier of a tenant.
type Tier string

const (
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// DataConfig is the hot/warm connectivity configuration nested in a
// TenantContext.
type DataConfig struct {
	// ConnectionString is present only in isolated mode; absent in
	// shared mode, where row-level security is used instead
	// (spec.md 3 invariant).
	ConnectionString  string `json:"connection_string,omitempty"`
	RowLevelSecurity  bool   `json:"row_level_security"`
	MaxPoolConnections int   `json:"max_pool_connections"`
}

// ObjectConfig is the cold-tier configuration nested in a TenantContext.
type ObjectConfig struct {
	Bucket           string `json:"bucket,omitempty"`
	EncryptionKeyRef string `json:"encryption_key_ref,omitempty"`
	RetentionPolicy  string `json:"retention_policy,omitempty"`
}

// AlertConfig is the notification routing configuration nested in a
// TenantContext.
type AlertConfig struct {
	NotificationTopics []string         `json:"notification_topics,omitempty"`
	WebhookURLs        []string         `json:"webhook_urls,omitempty"`
	EscalationRules    []EscalationRule `json:"escalation_rules,omitempty"`
}

// FeatureConfig is the feature-gating configuration nested in a
// TenantContext.
type FeatureConfig struct {
	AdvancedAnalytics bool `json:"advanced_analytics"`
	CustomDashboards  bool `json:"custom_dashboards"`
	APIRateLimit      int  `json:"api_rate_limit"` // requests/hour
	MaxConcurrentUsers int `json:"max_concurrent_users"`
}

// ComplianceTags are free-form regulatory/regional markers (e.g.
// "region-restricted:eu") evaluated by the compliance policy engine.
type ComplianceTags []string

// TenantContext is the routing and policy record a request is resolved
// into. Callers only ever see read-only copies; the directory owns
// cached instances (spec.md 3 "Ownership").
type TenantContext struct {
	TenantID        string         `json:"tenant_id"`
	DisplayName     string         `json:"display_name"`
	DeploymentMode  DeploymentMode `json:"deployment_mode"`
	DataRegion      string         `json:"data_region"`
	Tier            Tier           `json:"tier"`
	ComplianceTags  ComplianceTags `json:"compliance_tags,omitempty"`
	MaxEquipment    int            `json:"max_equipment"`
	RetentionDays   int            `json:"retention_days"`
	CreatedAt       time.Time      `json:"created_at"`

	Data    DataConfig    `json:"data"`
	Object  ObjectConfig  `json:"object"`
	Alert   AlertConfig   `json:"alert"`
	Feature FeatureConfig `json:"feature"`
}

// Validate enforces the shared/isolated connection-string invariant
// from spec.md 3.
func (t TenantContext) Validate() error {
	switch t.DeploymentMode {
	case ModeShared:
		if t.Data.ConnectionString != "" {
			return errInvalidTenant("shared tenant %q must not carry a dedicated connection string", t.TenantID)
		}
		if !t.Data.RowLevelSecurity {
			return errInvalidTenant("shared tenant %q requires row-level security", t.TenantID)
		}
	case ModeIsolated:
		if t.Data.ConnectionString == "" {
			return errInvalidTenant("isolated tenant %q requires a dedicated connection string", t.TenantID)
		}
	}
	return nil
}
