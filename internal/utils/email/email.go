package email

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/mpetrov/bank-cards/internal/config"
	"github.com/mpetrov/bank-cards/internal/models"
	"github.com/mpetrov/bank-cards/internal/utils"
)

// Sender handles sending notification emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// TransferCompleted notifies the card owner about a completed transfer
func (s *Sender) TransferCompleted(to, username string, transfer *models.Transfer) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Transfer Notification"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A transfer of %s RUB from card %d to card %d has been completed.\n"+
			"Transfer time: %s\n",
		username, transfer.Amount.StringFixed(2), transfer.FromCardID, transfer.ToCardID,
		transfer.TransferTime.Format("2006-01-02 15:04:05"),
	)
	body += "\nBest regards,\nBank Service"
	e.Text = []byte(body)

	return s.send(e)
}

// CardStatusChanged notifies the card owner about an administrative
// status change
func (s *Sender) CardStatusChanged(to, username string, card *models.Card) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = "Card Status Notification"

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"The status of your card %s has been changed to %s.\n",
		username, utils.MaskCardNumber(card.Number), card.Status,
	)
	if card.Status == models.CardStatusBlock {
		body += "If you did not request this, please contact the bank.\n"
	}
	body += "\nBest regards,\nBank Service"
	e.Text = []byte(body)

	return s.send(e)
}

func (s *Sender) send(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %v: %v", e.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %v: %s", e.To, e.Subject)
	return nil
}
