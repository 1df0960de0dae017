package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewAnalysisStateInitializesLists(t *testing.T) {
	state := NewAnalysisState("AAPL", "should I buy?")

	if state.Ticker != "AAPL" || state.UserQuery != "should I buy?" {
		t.Errorf("state: %+v", state)
	}
	if state.Messages == nil || state.Errors == nil {
		t.Fatal("message and error lists must start non-nil")
	}

	// Empty lists serialize as [] rather than null, so API consumers can
	// iterate without a nil check.
	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"messages":[]`) || !strings.Contains(got, `"errors":[]`) {
		t.Errorf("serialized state: %s", got)
	}
	if strings.Contains(got, `"analysis_plan"`) {
		t.Error("unset record slots should be omitted")
	}
}

func TestMarketBundleCompanyNameNilSafe(t *testing.T) {
	var b *MarketBundle
	if got := b.CompanyName(); got != "" {
		t.Errorf("nil bundle: %q", got)
	}
	if got := (&MarketBundle{}).CompanyName(); got != "" {
		t.Errorf("bundle without info: %q", got)
	}
	b = &MarketBundle{Info: &CompanyInfo{CompanyName: "Apple Inc."}}
	if got := b.CompanyName(); got != "Apple Inc." {
		t.Errorf("populated bundle: %q", got)
	}
}

func TestRecommendationJSONFieldNames(t *testing.T) {
	rec := Recommendation{
		Action:      ActionBuy,
		Confidence:  0.8,
		RiskLevel:   "Medium",
		TimeHorizon: "Long-term (1+ years)",
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(data)
	for _, field := range []string{`"action":"BUY"`, `"confidence":0.8`, `"risk_level"`, `"time_horizon"`} {
		if !strings.Contains(got, field) {
			t.Errorf("missing %s in %s", field, got)
		}
	}
}
