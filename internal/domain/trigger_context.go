package domain

type TriggerKind int

const (
	TriggerScheduledReport TriggerKind = iota
	TriggerThreatScan
	TriggerManualAlert
)

// TriggerContext is the reason a pipeline run executes. It governs the
// per-recipient send eligibility rules: scheduled reports always send for
// opted-in recipients, threat scans send only on breach, manual alerts send
// for the one targeted symbol.
type TriggerContext struct {
	Kind         TriggerKind
	TargetSymbol string
}

func ScheduledReportTrigger() TriggerContext {
	return TriggerContext{Kind: TriggerScheduledReport}
}

func ThreatScanTrigger() TriggerContext {
	return TriggerContext{Kind: TriggerThreatScan}
}

func ManualAlertTrigger(symbol string) TriggerContext {
	return TriggerContext{Kind: TriggerManualAlert, TargetSymbol: symbol}
}

func (trigger TriggerContext) String() string {
	switch trigger.Kind {
	case TriggerScheduledReport:
		return "scheduled"
	case TriggerThreatScan:
		return "threat-scan"
	default:
		return "manual"
	}
}
