package classify

import (
	"testing"

	"custodia/internal/models"
)

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		resource string
		want     models.RiskLevel
	}{
		{"delete_action", "PROJECT_DELETED", "PROJECT_42", models.RiskCritical},
		{"drop_action", "DROP_TABLE", "DATABASE", models.RiskCritical},
		{"critical_action", "CRITICAL_OVERRIDE", "SYSTEM", models.RiskCritical},
		{"export_action", "DATA_EXPORT", "USER_PROFILE", models.RiskHigh},
		{"modify_action", "PROJECT_MODIFY", "PROJECT_42", models.RiskHigh},
		{"admin_resource", "SETTINGS_CHANGED", "ADMIN_PANEL", models.RiskHigh},
		{"access_action", "DATA_ACCESS", "REPORT", models.RiskMedium},
		{"view_action", "REPORT_VIEW", "REPORT", models.RiskMedium},
		{"login_failed", "LOGIN_FAILED", "AUTH", models.RiskMedium},
		{"default_low", "LOGIN_SUCCESS", "AUTH", models.RiskLow},
		{"project_created", "PROJECT_CREATED", "PROJECT_42", models.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskLevel(tt.action, tt.resource); got != tt.want {
				t.Errorf("RiskLevel(%q, %q) = %s, want %s", tt.action, tt.resource, got, tt.want)
			}
		})
	}
}

// The CRITICAL check must run before the HIGH check: an action carrying both
// DELETE and EXPORT keywords classifies CRITICAL.
func TestRiskLevelKeywordPrecedence(t *testing.T) {
	if got := RiskLevel("DELETE_EXPORT", "USER_DATA"); got != models.RiskCritical {
		t.Errorf("RiskLevel(DELETE_EXPORT) = %s, want CRITICAL", got)
	}

	// EXPORT beats the ACCESS check even when both keywords appear.
	if got := RiskLevel("EXPORT_ACCESS", "REPORT"); got != models.RiskHigh {
		t.Errorf("RiskLevel(EXPORT_ACCESS) = %s, want HIGH", got)
	}

	// An admin resource lifts an otherwise-medium action to HIGH.
	if got := RiskLevel("DATA_ACCESS", "ADMIN_CONSOLE"); got != models.RiskHigh {
		t.Errorf("RiskLevel(DATA_ACCESS, ADMIN_CONSOLE) = %s, want HIGH", got)
	}
}

// LOGIN_FAILED matches by exact equality, not substring.
func TestRiskLevelLoginFailedExact(t *testing.T) {
	if got := RiskLevel("LOGIN_FAILED", "AUTH"); got != models.RiskMedium {
		t.Errorf("RiskLevel(LOGIN_FAILED) = %s, want MEDIUM", got)
	}
	if got := RiskLevel("BOT_LOGIN_FAILED_SWEEP", "AUTH"); got != models.RiskLow {
		t.Errorf("RiskLevel(BOT_LOGIN_FAILED_SWEEP) = %s, want LOW (no substring match)", got)
	}
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name     string
		resource string
		want     models.DataClassification
	}{
		{"admin", "ADMIN_PANEL", models.DataRestricted},
		{"security", "SECURITY_SETTINGS", models.DataRestricted},
		{"user", "USER_PROFILE", models.DataConfidential},
		{"personal", "PERSONAL_RECORDS", models.DataConfidential},
		{"project", "PROJECT_42", models.DataInternal},
		{"business", "BUSINESS_METRICS", models.DataInternal},
		{"default_public", "AUTH", models.DataPublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classification(tt.resource); got != tt.want {
				t.Errorf("Classification(%q) = %s, want %s", tt.resource, got, tt.want)
			}
		})
	}
}

// Most restrictive tier wins when multiple keywords appear.
func TestClassificationPrecedence(t *testing.T) {
	if got := Classification("ADMIN_USER_LIST"); got != models.DataRestricted {
		t.Errorf("Classification(ADMIN_USER_LIST) = %s, want RESTRICTED", got)
	}
	if got := Classification("USER_PROJECT_MAP"); got != models.DataConfidential {
		t.Errorf("Classification(USER_PROJECT_MAP) = %s, want CONFIDENTIAL", got)
	}
}

func TestTags(t *testing.T) {
	t.Run("personal_data", func(t *testing.T) {
		tags := Tags("DATA_VIEW", "USER_PROFILE")
		if !tags.Contains(models.FrameworkLGPD) {
			t.Errorf("expected LGPD tag, got %v", tags)
		}
	})

	t.Run("export_and_personal", func(t *testing.T) {
		tags := Tags("DATA_EXPORT", "USER_PROFILE")
		if !tags.Contains(models.FrameworkLGPD) || !tags.Contains(models.FrameworkGDPR) {
			t.Errorf("expected LGPD and GDPR tags, got %v", tags)
		}
	})

	t.Run("financial", func(t *testing.T) {
		tags := Tags("REPORT_VIEW", "FINANCIAL_SUMMARY")
		if !tags.Contains(models.FrameworkSOX) {
			t.Errorf("expected SOX tag, got %v", tags)
		}
	})

	t.Run("no_tags", func(t *testing.T) {
		if tags := Tags("LOGIN_SUCCESS", "AUTH"); len(tags) != 0 {
			t.Errorf("expected no tags, got %v", tags)
		}
	})
}

func TestClassifyScenarios(t *testing.T) {
	t.Run("failed_login", func(t *testing.T) {
		res := Classify("LOGIN_FAILED", "AUTH", nil)
		if res.RiskLevel != models.RiskMedium {
			t.Errorf("expected MEDIUM risk, got %s", res.RiskLevel)
		}
		if res.DataClassification != models.DataPublic {
			t.Errorf("expected PUBLIC classification, got %s", res.DataClassification)
		}
	})

	t.Run("user_data_export", func(t *testing.T) {
		res := Classify("DATA_EXPORT", "USER_PROFILE", map[string]interface{}{"recordCount": 500})
		if res.RiskLevel != models.RiskHigh {
			t.Errorf("expected HIGH risk, got %s", res.RiskLevel)
		}
		if res.DataClassification != models.DataConfidential {
			t.Errorf("expected CONFIDENTIAL classification, got %s", res.DataClassification)
		}
		if !res.ComplianceTags.Contains(models.FrameworkLGPD) || !res.ComplianceTags.Contains(models.FrameworkGDPR) {
			t.Errorf("expected LGPD and GDPR tags, got %v", res.ComplianceTags)
		}
	})
}

// Classify is pure: repeated calls with the same inputs always agree.
func TestClassifyDeterministic(t *testing.T) {
	first := Classify("DATA_EXPORT", "USER_PROFILE", nil)
	for i := 0; i < 100; i++ {
		again := Classify("DATA_EXPORT", "USER_PROFILE", nil)
		if again.RiskLevel != first.RiskLevel ||
			again.DataClassification != first.DataClassification ||
			len(again.ComplianceTags) != len(first.ComplianceTags) {
			t.Fatalf("classification changed between calls: %+v vs %+v", first, again)
		}
	}
}
