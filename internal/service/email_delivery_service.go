package service

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"stock-watchdog/internal/config"
	"stock-watchdog/internal/domain"
)

type AlertSender interface {
	SendAlert(recipient domain.RecipientProfile, subject string, htmlBody string) error
}

// EmailDeliveryService performs one synchronous authenticated SMTP delivery
// per call. CC addresses appear in the headers; BCC addresses only appear in
// the envelope.
type EmailDeliveryService struct {
	Sender      config.SenderConfiguration
	DialTimeout time.Duration
}

func NewEmailDeliveryService(sender config.SenderConfiguration) *EmailDeliveryService {
	return &EmailDeliveryService{
		Sender:      sender,
		DialTimeout: 10 * time.Second,
	}
}

func (service *EmailDeliveryService) SendAlert(recipient domain.RecipientProfile, subject string, htmlBody string) error {
	if transportError := service.checkTransportConfigured(); transportError != nil {
		return transportError
	}

	messageBody := buildAlertMessage(service.Sender, recipient, subject, htmlBody)

	sendError := service.deliverMessage(envelopeRecipients(recipient), messageBody)
	if sendError != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrDeliveryFailed, recipient.Email, sendError)
	}
	return nil
}

// buildAlertMessage assembles the RFC 5322 message. Cc addresses are listed in
// the headers; Bcc addresses never appear anywhere in the message.
func buildAlertMessage(sender config.SenderConfiguration, recipient domain.RecipientProfile, subject string, htmlBody string) []byte {
	messageHeaders := []string{
		fmt.Sprintf("From: %s <%s>", sender.FromName, sender.FromEmail),
		fmt.Sprintf("To: %s", recipient.Email),
	}
	if len(recipient.CC) > 0 {
		messageHeaders = append(messageHeaders, fmt.Sprintf("Cc: %s", strings.Join(recipient.CC, ", ")))
	}
	messageHeaders = append(messageHeaders,
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"utf-8\"",
		"",
	)
	return []byte(strings.Join(messageHeaders, "\r\n") + "\r\n" + htmlBody)
}

// envelopeRecipients lists every address the message is delivered to,
// including Bcc.
func envelopeRecipients(recipient domain.RecipientProfile) []string {
	addresses := make([]string, 0, 1+len(recipient.CC)+len(recipient.BCC))
	addresses = append(addresses, recipient.Email)
	addresses = append(addresses, recipient.CC...)
	addresses = append(addresses, recipient.BCC...)
	return addresses
}

// ValidateTransport connects and authenticates without sending a message.
func (service *EmailDeliveryService) ValidateTransport() error {
	if transportError := service.checkTransportConfigured(); transportError != nil {
		return transportError
	}

	smtpClient, connectionError := service.connectAndAuthenticate()
	if connectionError != nil {
		return connectionError
	}
	defer smtpClient.Close()

	return smtpClient.Quit()
}

func (service *EmailDeliveryService) checkTransportConfigured() error {
	if service.Sender.FromEmail == "" || service.Sender.SMTPPassword == "" || service.Sender.SMTPHost == "" || service.Sender.SMTPPort == 0 {
		return domain.ErrTransportUnconfigured
	}
	return nil
}

func (service *EmailDeliveryService) deliverMessage(envelopeRecipients []string, messageBody []byte) error {
	smtpClient, connectionError := service.connectAndAuthenticate()
	if connectionError != nil {
		return connectionError
	}
	defer smtpClient.Close()

	if senderError := smtpClient.Mail(service.Sender.FromEmail); senderError != nil {
		return senderError
	}

	for _, envelopeRecipient := range envelopeRecipients {
		if recipientError := smtpClient.Rcpt(envelopeRecipient); recipientError != nil {
			return recipientError
		}
	}

	dataWriter, dataError := smtpClient.Data()
	if dataError != nil {
		return dataError
	}

	if _, writeError := dataWriter.Write(messageBody); writeError != nil {
		return writeError
	}

	if closeError := dataWriter.Close(); closeError != nil {
		return closeError
	}

	return smtpClient.Quit()
}

func (service *EmailDeliveryService) connectAndAuthenticate() (*smtp.Client, error) {
	smtpServerAddress := fmt.Sprintf("%s:%d", service.Sender.SMTPHost, service.Sender.SMTPPort)

	connection, connectionError := net.DialTimeout("tcp", smtpServerAddress, service.DialTimeout)
	if connectionError != nil {
		return nil, connectionError
	}

	smtpClient, clientError := smtp.NewClient(connection, service.Sender.SMTPHost)
	if clientError != nil {
		connection.Close()
		return nil, clientError
	}

	if service.Sender.UseTLS {
		tlsConfiguration := &tls.Config{ServerName: service.Sender.SMTPHost}
		if tlsError := smtpClient.StartTLS(tlsConfiguration); tlsError != nil {
			smtpClient.Close()
			return nil, tlsError
		}
	}

	authentication := smtp.PlainAuth("", service.Sender.SMTPUsername, service.Sender.SMTPPassword, service.Sender.SMTPHost)
	if authenticationError := smtpClient.Auth(authentication); authenticationError != nil {
		smtpClient.Close()
		return nil, authenticationError
	}

	return smtpClient, nil
}
