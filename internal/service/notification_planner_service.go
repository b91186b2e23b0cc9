package service

import (
	"stock-watchdog/internal/domain"
)

type NotificationPlan struct {
	Recipient   domain.RecipientProfile
	Snapshots   []domain.PriceSnapshot
	Instruments []domain.MonitoredInstrument
	AnyBreach   bool
	Subject     string
}

// NotificationPlannerService decides, per recipient, whether the current run
// produces a message and with what payload. Scheduled reports always send for
// opted-in recipients with at least one resolvable symbol; threat scans send
// only when a subscribed instrument is in breach; manual alerts send for the
// targeted symbol when subscribed.
type NotificationPlannerService struct{}

func NewNotificationPlannerService() *NotificationPlannerService {
	return &NotificationPlannerService{}
}

func (service *NotificationPlannerService) PlanNotifications(snapshotsBySymbol map[string]domain.PriceSnapshot, instruments []domain.MonitoredInstrument, recipients []domain.RecipientProfile, trigger domain.TriggerContext) []NotificationPlan {
	plans := make([]NotificationPlan, 0, len(recipients))
	for _, recipient := range recipients {
		plan, eligible := service.planForRecipient(snapshotsBySymbol, instruments, recipient, trigger)
		if eligible {
			plans = append(plans, plan)
		}
	}
	return plans
}

func (service *NotificationPlannerService) planForRecipient(snapshotsBySymbol map[string]domain.PriceSnapshot, instruments []domain.MonitoredInstrument, recipient domain.RecipientProfile, trigger domain.TriggerContext) (NotificationPlan, bool) {
	if !preferenceAllowsTrigger(recipient.Preferences, trigger) {
		return NotificationPlan{}, false
	}
	if trigger.Kind == domain.TriggerManualAlert && !recipient.IsSubscribedTo(trigger.TargetSymbol) {
		return NotificationPlan{}, false
	}

	instrumentsBySymbol := make(map[string]domain.MonitoredInstrument, len(instruments))
	for _, instrument := range instruments {
		instrumentsBySymbol[instrument.Symbol] = instrument
	}

	// Subscription order drives the payload order.
	var recipientSnapshots []domain.PriceSnapshot
	var recipientInstruments []domain.MonitoredInstrument
	for _, subscribedSymbol := range recipient.SubscribedSymbols {
		snapshot, snapshotAvailable := snapshotsBySymbol[subscribedSymbol]
		if !snapshotAvailable {
			continue
		}
		instrument, instrumentConfigured := instrumentsBySymbol[subscribedSymbol]
		if !instrumentConfigured {
			continue
		}
		recipientSnapshots = append(recipientSnapshots, snapshot)
		recipientInstruments = append(recipientInstruments, instrument)
	}

	if len(recipientSnapshots) == 0 {
		return NotificationPlan{}, false
	}

	anyBreach := AnyBreach(recipientSnapshots, recipientInstruments)

	// A clean threat scan is silence, not a message.
	if trigger.Kind == domain.TriggerThreatScan && !anyBreach {
		return NotificationPlan{}, false
	}

	// A manual subject escalates on the targeted instrument alone, not on
	// whatever else in the payload happens to be in breach.
	subjectBreach := anyBreach
	if trigger.Kind == domain.TriggerManualAlert {
		subjectBreach = targetSymbolBreached(recipientSnapshots, recipientInstruments, trigger.TargetSymbol)
	}

	return NotificationPlan{
		Recipient:   recipient,
		Snapshots:   recipientSnapshots,
		Instruments: recipientInstruments,
		AnyBreach:   anyBreach,
		Subject:     subjectForTrigger(trigger, subjectBreach),
	}, true
}

func targetSymbolBreached(snapshots []domain.PriceSnapshot, instruments []domain.MonitoredInstrument, targetSymbol string) bool {
	for snapshotIndex, instrument := range instruments {
		if instrument.MatchesSymbol(targetSymbol) {
			return EvaluateBreach(snapshots[snapshotIndex], instrument)
		}
	}
	return false
}

func preferenceAllowsTrigger(preferences domain.AlertPreferences, trigger domain.TriggerContext) bool {
	switch trigger.Kind {
	case domain.TriggerScheduledReport:
		return preferences.ScheduledReports
	case domain.TriggerThreatScan:
		return preferences.ThreatAlerts
	default:
		return preferences.ManualAlerts
	}
}

func subjectForTrigger(trigger domain.TriggerContext, anyBreach bool) string {
	switch trigger.Kind {
	case domain.TriggerManualAlert:
		if anyBreach {
			return "BOT ALERT!: " + trigger.TargetSymbol
		}
		return "Manual Stock Update: " + trigger.TargetSymbol
	case domain.TriggerScheduledReport:
		if anyBreach {
			return "Scheduled Report - BOT ALERT!"
		}
		return "Scheduled Report - Stock Update"
	default:
		if anyBreach {
			return "BOT ALERT!"
		}
		return "Stock Update"
	}
}
