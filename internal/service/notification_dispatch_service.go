package service

import (
	"errors"

	"github.com/rs/zerolog/log"

	"stock-watchdog/internal/domain"
)

// NotificationDispatchService renders and delivers one document per planned
// notification. A failure for one recipient is logged and never blocks the
// remaining recipients.
type NotificationDispatchService struct {
	RenderService *ReportRenderService
}

func NewNotificationDispatchService(renderService *ReportRenderService) *NotificationDispatchService {
	return &NotificationDispatchService{RenderService: renderService}
}

func (service *NotificationDispatchService) DispatchAll(alertSender AlertSender, plans []NotificationPlan, currencySymbol string) int {
	deliveredCount := 0

	for _, plan := range plans {
		htmlBody, renderError := service.RenderService.RenderGroupedReport(plan.Snapshots, plan.Instruments, currencySymbol)
		if renderError != nil {
			log.Error().Err(renderError).Str("recipient", plan.Recipient.Email).Msg("Could not render report")
			continue
		}

		sendError := alertSender.SendAlert(plan.Recipient, plan.Subject, htmlBody)
		if sendError != nil {
			if errors.Is(sendError, domain.ErrTransportUnconfigured) {
				log.Error().Str("recipient", plan.Recipient.Email).Msg("Cannot send email: SMTP transport not configured")
			} else {
				log.Error().Err(sendError).Str("recipient", plan.Recipient.Email).Msg("Failed to send email")
			}
			continue
		}

		deliveredCount++
		log.Info().
			Str("recipient", plan.Recipient.DisplayName()).
			Int("stocks", len(plan.Snapshots)).
			Bool("alert", plan.AnyBreach).
			Int("cc", len(plan.Recipient.CC)).
			Int("bcc", len(plan.Recipient.BCC)).
			Msg("Email sent successfully")
	}

	return deliveredCount
}
