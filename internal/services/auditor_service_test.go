package services

import (
	"context"
	"strings"
	"testing"
	"time"

	apperrors "custodia/internal/errors"
	"custodia/internal/models"
	"custodia/internal/pagination"
	"custodia/internal/testutil"
)

const testLookback = 30 * 24 * time.Hour

func TestRunAuditWithNoRulesScoresPerfect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditorService(db, NewRuleService(db), testLookback, nil)

	result, err := svc.RunAudit(context.Background())
	testutil.AssertNoError(t, err)

	if result.RulesChecked != 0 {
		t.Fatalf("expected 0 rules checked, got %d", result.RulesChecked)
	}
	if result.Overall.Score != 100 {
		t.Fatalf("expected vacuous score 100, got %v", result.Overall.Score)
	}
	if len(result.Frameworks) != len(models.Frameworks) {
		t.Fatalf("expected a score for every framework, got %d", len(result.Frameworks))
	}
	for f, score := range result.Frameworks {
		if score.Score != 100 {
			t.Errorf("expected framework %s to score 100, got %v", f, score.Score)
		}
	}
}

func TestRunAuditStatusesAndScore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rules := NewRuleService(db)
	svc := NewAuditorService(db, rules, testLookback, nil)

	event := testutil.CreateTestEvent(t, db)

	// Rule 1: open violation in window -> non_compliant.
	open := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) { r.Framework = models.FrameworkLGPD })
	testutil.CreateTestViolation(t, db, open, event)

	// Rule 2: only a resolved violation -> warning, counts as compliant.
	warned := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) { r.Framework = models.FrameworkLGPD })
	testutil.CreateTestViolation(t, db, warned, event, func(v *models.ComplianceViolation) {
		v.Status = models.ViolationResolved
	})

	// Rule 3: no violations at all -> compliant.
	clean := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) { r.Framework = models.FrameworkSOX })

	// Rule 4: violation outside the lookback window -> compliant.
	stale := testutil.CreateTestRule(t, db, func(r *models.ComplianceRule) { r.Framework = models.FrameworkSOX })
	testutil.CreateTestViolation(t, db, stale, event, func(v *models.ComplianceViolation) {
		v.ViolationDate = time.Now().Add(-testLookback - 24*time.Hour)
	})

	result, err := svc.RunAudit(context.Background())
	testutil.AssertNoError(t, err)

	if result.RulesChecked != 4 {
		t.Fatalf("expected 4 rules checked, got %d", result.RulesChecked)
	}
	if result.Overall.Compliant != 3 || result.Overall.Violations != 1 {
		t.Fatalf("expected 3 compliant / 1 violation, got %d/%d", result.Overall.Compliant, result.Overall.Violations)
	}
	if result.Overall.Score != 75 {
		t.Fatalf("expected overall score 75, got %v", result.Overall.Score)
	}

	lgpd := result.Frameworks[models.FrameworkLGPD]
	if lgpd.Compliant != 1 || lgpd.Violations != 1 || lgpd.Score != 50 {
		t.Fatalf("unexpected LGPD score: %+v", lgpd)
	}
	sox := result.Frameworks[models.FrameworkSOX]
	if sox.Compliant != 2 || sox.Violations != 0 || sox.Score != 100 {
		t.Fatalf("unexpected SOX score: %+v", sox)
	}
	if result.Frameworks[models.FrameworkPCI].Score != 100 {
		t.Fatal("expected rule-less framework to score 100")
	}

	// Snapshots are appended per rule per run.
	wantStatus := map[string]models.RuleStatus{
		open.ID:   models.RuleNonCompliant,
		warned.ID: models.RuleWarning,
		clean.ID:  models.RuleCompliant,
		stale.ID:  models.RuleCompliant,
	}
	var checks []models.RuleCheck
	testutil.AssertNoError(t, db.Where("run_id = ?", result.RunID).Find(&checks).Error)
	if len(checks) != 4 {
		t.Fatalf("expected 4 rule check snapshots, got %d", len(checks))
	}
	for _, check := range checks {
		if check.Status != wantStatus[check.RuleID] {
			t.Errorf("rule %s: expected status %s, got %s", check.RuleID, wantStatus[check.RuleID], check.Status)
		}
	}

	// The run itself is persisted as an immutable snapshot.
	var run models.AuditRun
	testutil.AssertNoError(t, db.First(&run, "id = ?", result.RunID).Error)
	if run.RulesChecked != 4 || run.OverallScore != 75 {
		t.Fatalf("unexpected persisted run: %+v", run)
	}
}

func TestRunAuditSnapshotsAccumulate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rules := NewRuleService(db)
	svc := NewAuditorService(db, rules, testLookback, nil)

	rule := testutil.CreateTestRule(t, db)

	first, err := svc.RunAudit(context.Background())
	testutil.AssertNoError(t, err)

	event := testutil.CreateTestEvent(t, db)
	testutil.CreateTestViolation(t, db, rule, event)

	second, err := svc.RunAudit(context.Background())
	testutil.AssertNoError(t, err)

	if first.RunID == second.RunID {
		t.Fatal("expected distinct run IDs")
	}

	var count int64
	testutil.AssertNoError(t, db.Model(&models.RuleCheck{}).Where("rule_id = ?", rule.ID).Count(&count).Error)
	if count != 2 {
		t.Fatalf("expected 2 snapshots after 2 runs, got %d", count)
	}

	// The rule surfaces the newest outcome.
	fetched, err := rules.GetRuleByID(context.Background(), rule.ID)
	testutil.AssertNoError(t, err)
	if fetched.Status != models.RuleNonCompliant {
		t.Fatalf("expected latest status non_compliant, got %s", fetched.Status)
	}
}

func TestRunAuditHonorsCancellation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rules := NewRuleService(db)
	svc := NewAuditorService(db, rules, testLookback, nil)

	testutil.CreateTestRule(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunAudit(ctx)
	testutil.AssertAppError(t, err, apperrors.ErrAuditRunFailed)
}

func TestGenerateReportSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditorService(db, NewRuleService(db), testLookback, nil)

	now := time.Now()
	start := now.Add(-24 * time.Hour)

	testutil.CreateTestEvent(t, db, func(e *models.AuditEvent) {
		e.RiskLevel = models.RiskCritical
		e.Timestamp = now.Add(-2 * time.Hour)
	})
	testutil.CreateTestEvent(t, db, func(e *models.AuditEvent) {
		e.RiskLevel = models.RiskHigh
		e.Success = false
		e.Timestamp = now.Add(-3 * time.Hour)
	})
	// Outside the window.
	testutil.CreateTestEvent(t, db, func(e *models.AuditEvent) {
		e.RiskLevel = models.RiskCritical
		e.Timestamp = now.Add(-48 * time.Hour)
	})

	report, err := svc.GenerateReport(context.Background(), start, now, EventFilter{})
	testutil.AssertNoError(t, err)

	if report.Summary.TotalEvents != 2 {
		t.Fatalf("expected 2 events in window, got %d", report.Summary.TotalEvents)
	}
	if report.Summary.CriticalEvents != 1 || report.Summary.HighRiskEvents != 1 || report.Summary.FailedEvents != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if report.ID == "" || report.Title == "" {
		t.Fatal("expected report identity and title")
	}

	// Reports are pure over their window: a second generation matches.
	again, err := svc.GenerateReport(context.Background(), start, now, EventFilter{})
	testutil.AssertNoError(t, err)
	if again.Summary != report.Summary {
		t.Fatalf("expected identical summaries, got %+v vs %+v", report.Summary, again.Summary)
	}
}

func TestBuildRecommendations(t *testing.T) {
	eventsWith := func(critical, high, failedLogins int) []models.AuditEvent {
		var events []models.AuditEvent
		for i := 0; i < critical; i++ {
			events = append(events, models.AuditEvent{RiskLevel: models.RiskCritical})
		}
		for i := 0; i < high; i++ {
			events = append(events, models.AuditEvent{RiskLevel: models.RiskHigh})
		}
		for i := 0; i < failedLogins; i++ {
			events = append(events, models.AuditEvent{Action: "LOGIN_FAILED", RiskLevel: models.RiskMedium})
		}
		return events
	}

	tests := []struct {
		name     string
		events   []models.AuditEvent
		want     int
		contains string
	}{
		{"quiet window", eventsWith(0, 0, 0), 1, "No immediate action required"},
		{"critical events", eventsWith(2, 0, 0), 1, "Investigate 2 critical event(s)"},
		{"exactly five high is quiet", eventsWith(0, 5, 0), 1, "No immediate action required"},
		{"six high events", eventsWith(0, 6, 0), 1, "Review access policies"},
		{"exactly ten failed logins is quiet", eventsWith(0, 0, 10), 1, "No immediate action required"},
		{"eleven failed logins", eventsWith(0, 0, 11), 1, "Possible attack attempt"},
		{"everything at once", eventsWith(1, 6, 11), 3, "Investigate 1 critical event(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := buildRecommendations(tt.events)
			if len(recs) != tt.want {
				t.Fatalf("expected %d recommendations, got %v", tt.want, recs)
			}
			found := false
			for _, r := range recs {
				if strings.HasPrefix(r, tt.contains) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a recommendation starting with %q, got %v", tt.contains, recs)
			}
		})
	}
}

func TestGetAuditRuns(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditorService(db, NewRuleService(db), testLookback, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.RunAudit(context.Background())
		testutil.AssertNoError(t, err)
	}

	resp, err := svc.GetAuditRuns(context.Background(), pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)
	if resp.TotalItems != 3 || len(resp.Data) != 2 {
		t.Fatalf("expected 3 runs with page of 2, got total=%d len=%d", resp.TotalItems, len(resp.Data))
	}
}
