package domain

type AlertPreferences struct {
	ScheduledReports bool
	ThreatAlerts     bool
	ManualAlerts     bool
}

type RecipientProfile struct {
	Email             string
	Name              string
	SubscribedSymbols []string
	CC                []string
	BCC               []string
	Preferences       AlertPreferences
}

func (recipient RecipientProfile) DisplayName() string {
	if recipient.Name != "" {
		return recipient.Name
	}
	return recipient.Email
}

func (recipient RecipientProfile) IsSubscribedTo(symbol string) bool {
	for _, subscribedSymbol := range recipient.SubscribedSymbols {
		if subscribedSymbol == symbol {
			return true
		}
	}
	return false
}
