// Package email sends transactional mail such as purchase receipts.
//
// EmailSender is implemented by PostmarkClient for production and DevSender,
// which writes messages to disk for local development. NewSender picks one
// based on Config:
//
//	sender, err := email.NewSender(cfg)
//	if err != nil {
//		return err
//	}
//	html, err := templates.Render(ctx, receipt)
//	if err != nil {
//		return err
//	}
//	err = sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   user.Email,
//		Subject:  "Payment received",
//		BodyHTML: html,
//		Tag:      "receipt",
//	})
//
// Parameters are validated before any delivery attempt; failures wrap
// ErrInvalidParams or ErrFailedToSendEmail.
package email
