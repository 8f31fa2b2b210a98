package services

import "custodia/internal/models"

// DefaultRules returns the built-in compliance rule catalogue. The IDs are
// stable slugs so repeated seeding is idempotent and operators can reference
// rules across environments.
func DefaultRules() []models.ComplianceRule {
	return []models.ComplianceRule{
		// LGPD
		{
			Base:        models.Base{ID: "lgpd_consent_required"},
			Name:        "LGPD Consent Required",
			Description: "Verify that consent was obtained before processing personal data",
			Framework:   models.FrameworkLGPD,
			Category:    "consent",
			Severity:    models.SeverityCritical,
			Conditions: models.ConditionList{
				{Field: "data_type", Operator: models.OpEquals, Value: "personal"},
				{Field: "consent_obtained", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Obtain explicit consent from the data subject",
			IsActive:    true,
		},
		{
			Base:        models.Base{ID: "lgpd_data_minimization"},
			Name:        "LGPD Data Minimization",
			Description: "Verify that only the data strictly needed is being collected",
			Framework:   models.FrameworkLGPD,
			Category:    "data_minimization",
			Severity:    models.SeverityHigh,
			Conditions: models.ConditionList{
				{Field: "data_collected", Operator: models.OpGreaterThan, Value: "minimal_required"},
			},
			Remediation: "Review collected data and reduce it to the minimum necessary",
			IsActive:    true,
		},
		{
			Base:        models.Base{ID: "lgpd_retention_period"},
			Name:        "LGPD Retention Period",
			Description: "Verify that personal data is deleted once its retention period expires",
			Framework:   models.FrameworkLGPD,
			Category:    "retention",
			Severity:    models.SeverityHigh,
			Conditions: models.ConditionList{
				{Field: "retention_expired", Operator: models.OpEquals, Value: true},
				{Field: "data_deleted", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Delete personal data after the retention period",
			IsActive:    true,
		},
		{
			Base:        models.Base{ID: "lgpd_access_rights"},
			Name:        "LGPD Access Rights",
			Description: "Verify that access, rectification, and deletion rights are implemented",
			Framework:   models.FrameworkLGPD,
			Category:    "access_rights",
			Severity:    models.SeverityCritical,
			Conditions: models.ConditionList{
				{Field: "access_rights_implemented", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Implement mechanisms for data subjects to exercise their rights",
			IsActive:    true,
		},

		// ISO 27001
		{
			Base:        models.Base{ID: "iso_access_control"},
			Name:        "ISO 27001 Access Control",
			Description: "Verify that access controls are adequately implemented",
			Framework:   models.FrameworkISO27001,
			Category:    "access_control",
			Severity:    models.SeverityCritical,
			Conditions: models.ConditionList{
				{Field: "access_control_implemented", Operator: models.OpEquals, Value: false},
				{Field: "user_authentication", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Implement robust access controls and multi-factor authentication",
			IsActive:    true,
		},
		{
			Base:        models.Base{ID: "iso_data_encryption"},
			Name:        "ISO 27001 Data Encryption",
			Description: "Verify that sensitive data is encrypted",
			Framework:   models.FrameworkISO27001,
			Category:    "encryption",
			Severity:    models.SeverityHigh,
			Conditions: models.ConditionList{
				{Field: "sensitive_data_encrypted", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Encrypt sensitive data at rest and in transit",
			IsActive:    true,
		},
		{
			Base:        models.Base{ID: "iso_incident_response"},
			Name:        "ISO 27001 Incident Response",
			Description: "Verify that an incident response process is documented",
			Framework:   models.FrameworkISO27001,
			Category:    "incident_response",
			Severity:    models.SeverityHigh,
			Conditions: models.ConditionList{
				{Field: "incident_response_plan", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Develop and document an incident response plan",
			IsActive:    true,
		},
		{
			Base:        models.Base{ID: "iso_backup_recovery"},
			Name:        "ISO 27001 Backup and Recovery",
			Description: "Verify that backup and recovery procedures are in place",
			Framework:   models.FrameworkISO27001,
			Category:    "backup_recovery",
			Severity:    models.SeverityHigh,
			Conditions: models.ConditionList{
				{Field: "backup_procedures", Operator: models.OpEquals, Value: false},
				{Field: "recovery_tested", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Implement and regularly test backup and recovery procedures",
			IsActive:    true,
		},

		// SOX
		{
			Base:        models.Base{ID: "sox_financial_controls"},
			Name:        "SOX Financial Controls",
			Description: "Verify that financial controls are adequate",
			Framework:   models.FrameworkSOX,
			Category:    "financial_controls",
			Severity:    models.SeverityCritical,
			Conditions: models.ConditionList{
				{Field: "financial_controls_adequate", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Implement adequate financial controls and document processes",
			IsActive:    true,
		},
		{
			Base:        models.Base{ID: "sox_change_management"},
			Name:        "SOX Change Management",
			Description: "Verify that changes to financial systems are controlled",
			Framework:   models.FrameworkSOX,
			Category:    "change_management",
			Severity:    models.SeverityHigh,
			Conditions: models.ConditionList{
				{Field: "change_management_implemented", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Establish a formal change management process",
			IsActive:    true,
		},

		// PCI DSS
		{
			Base:        models.Base{ID: "pci_card_data_protection"},
			Name:        "PCI Card Data Protection",
			Description: "Verify that cardholder data is adequately protected",
			Framework:   models.FrameworkPCI,
			Category:    "card_data_protection",
			Severity:    models.SeverityCritical,
			Conditions: models.ConditionList{
				{Field: "card_data_encrypted", Operator: models.OpEquals, Value: false},
				{Field: "pci_compliant", Operator: models.OpEquals, Value: false},
			},
			Remediation: "Implement PCI DSS controls for cardholder data protection",
			IsActive:    true,
		},
	}
}
