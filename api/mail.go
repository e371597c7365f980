package main

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type mailer struct {
	client *sendgrid.Client
	sender *mail.Email
}

// newMailer returns a disabled mailer when no API key is configured,
// so development and test runs work without SendGrid credentials.
func newMailer(apiKey, senderName, senderAddress string) *mailer {
	m := &mailer{
		sender: mail.NewEmail(senderName, senderAddress),
	}
	if apiKey == "" {
		log.Println("no SendGrid API key configured, email notifications disabled")
		return m
	}
	m.client = sendgrid.NewSendClient(apiKey)
	return m
}

func (m *mailer) send(toAddress, toName, subject, body string) error {
	if m.client == nil {
		return nil
	}
	to := mail.NewEmail(toName, toAddress)
	message := mail.NewSingleEmail(m.sender, subject, to, body, body)
	response, err := m.client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid responded with status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (m *mailer) sendWelcome(email, name string) error {
	subject := "Thanks for joining in!"
	body := fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name)
	return m.send(email, name, subject, body)
}

func (m *mailer) sendFarewell(email, name string) error {
	subject := "We're sad you're leaving..."
	body := fmt.Sprintf("%s, why are you leaving us? Can we help you somehow?", name)
	return m.send(email, name, subject, body)
}

// background runs fn on its own goroutine with panic recovery. Used
// for work the response must not wait on.
func (app *application) background(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Println(r)
			}
		}()
		fn()
	}()
}

func (app *application) notifyWelcome(email, name string) {
	app.background(func() {
		err := app.mailer.sendWelcome(email, name)
		if err != nil {
			log.Printf("could not send welcome email to %s: %v", email, err)
		}
	})
}

func (app *application) notifyFarewell(email, name string) {
	app.background(func() {
		err := app.mailer.sendFarewell(email, name)
		if err != nil {
			log.Printf("could not send farewell email to %s: %v", email, err)
		}
	})
}
