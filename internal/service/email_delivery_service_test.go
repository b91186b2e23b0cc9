package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-watchdog/internal/config"
	"stock-watchdog/internal/domain"
)

func TestSendAlert_UnconfiguredTransportFailsFast(t *testing.T) {
	deliveryService := NewEmailDeliveryService(config.SenderConfiguration{
		FromEmail: "noreply@yourdomain.com",
		SMTPHost:  "smtp.hostinger.com",
		SMTPPort:  587,
		// no password
	})

	startTime := time.Now()
	sendError := deliveryService.SendAlert(domain.RecipientProfile{Email: "trader@yourcompany.com"}, "subject", "<html></html>")

	assert.ErrorIs(t, sendError, domain.ErrTransportUnconfigured)
	assert.Less(t, time.Since(startTime), time.Second, "missing credentials must fail before any network attempt")
}

func TestValidateTransport_UnconfiguredTransport(t *testing.T) {
	deliveryService := NewEmailDeliveryService(config.SenderConfiguration{})
	assert.ErrorIs(t, deliveryService.ValidateTransport(), domain.ErrTransportUnconfigured)
}

func TestBuildAlertMessage_HeaderVisibility(t *testing.T) {
	sender := config.SenderConfiguration{FromEmail: "noreply@yourdomain.com", FromName: "Stock Watchdog"}
	recipient := domain.RecipientProfile{
		Email: "trader@yourcompany.com",
		CC:    []string{"risk@yourcompany.com", "ops@yourcompany.com"},
		BCC:   []string{"audit@yourcompany.com"},
	}

	message := string(buildAlertMessage(sender, recipient, "BOT ALERT!", "<html>body</html>"))
	headerBlock, bodyBlock, blankLineFound := strings.Cut(message, "\r\n\r\n")
	require.True(t, blankLineFound, "headers and body must be separated by a blank line")

	assert.Contains(t, headerBlock, "From: Stock Watchdog <noreply@yourdomain.com>")
	assert.Contains(t, headerBlock, "To: trader@yourcompany.com")
	assert.Contains(t, headerBlock, "Cc: risk@yourcompany.com, ops@yourcompany.com")
	assert.Contains(t, headerBlock, "Subject: BOT ALERT!")
	assert.Contains(t, headerBlock, "Content-Type: text/html")

	// Bcc must never surface anywhere in the transmitted message.
	assert.NotContains(t, message, "Bcc")
	assert.NotContains(t, message, "audit@yourcompany.com")

	assert.Equal(t, "<html>body</html>", bodyBlock)
}

func TestBuildAlertMessage_OmitsEmptyCcHeader(t *testing.T) {
	sender := config.SenderConfiguration{FromEmail: "noreply@yourdomain.com", FromName: "Stock Watchdog"}
	recipient := domain.RecipientProfile{Email: "trader@yourcompany.com"}

	message := string(buildAlertMessage(sender, recipient, "Stock Update", "<html></html>"))

	assert.NotContains(t, message, "Cc:")
}

func TestEnvelopeRecipients_IncludesEveryAddressClass(t *testing.T) {
	recipient := domain.RecipientProfile{
		Email: "trader@yourcompany.com",
		CC:    []string{"risk@yourcompany.com"},
		BCC:   []string{"audit@yourcompany.com"},
	}

	assert.Equal(t, []string{
		"trader@yourcompany.com",
		"risk@yourcompany.com",
		"audit@yourcompany.com",
	}, envelopeRecipients(recipient))
}

func TestSendAlert_MissingHostFailsFast(t *testing.T) {
	deliveryService := NewEmailDeliveryService(config.SenderConfiguration{
		FromEmail:    "noreply@yourdomain.com",
		SMTPPassword: "secret",
	})

	sendError := deliveryService.SendAlert(domain.RecipientProfile{Email: "trader@yourcompany.com"}, "subject", "<html></html>")
	assert.ErrorIs(t, sendError, domain.ErrTransportUnconfigured)
}
