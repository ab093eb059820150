package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"classledger/internal/config"
	"classledger/internal/identity"
	"classledger/internal/mailer"
	"classledger/internal/queue"
	"classledger/internal/store"
)

// Worker consumes notification messages and sends email.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "classledger:notifications")
	}

	var sender mailer.Sender
	if cfg.SendgridKey != "" {
		sender = mailer.NewSendgrid(cfg.SendgridKey, cfg.FromName, cfg.FromEmail)
		log.Println("sendgrid configured")
	} else {
		sender = mailer.Console{}
		log.Println("no sendgrid key, logging mail to console")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		var n identity.Notification
		if err := json.Unmarshal(msg.Body, &n); err != nil {
			log.Printf("malformed notification dropped: %v", err)
			continue
		}

		var mail mailer.Message
		switch n.Kind {
		case "signup":
			if cfg.AdminInbox == "" {
				continue
			}
			mail = mailer.Message{
				ToName:  "Admin",
				ToEmail: cfg.AdminInbox,
				Subject: "New signup awaiting approval",
				Text:    n.DisplayName + " <" + n.Email + "> signed up and is awaiting approval.",
			}
		case "decision":
			subject := "Your account was approved"
			text := "Hi " + n.DisplayName + ", your account has been approved. You can now sign in."
			if n.Status == string(identity.RequestRejected) {
				subject = "Your application was not approved"
				text = "Hi " + n.DisplayName + ", your application was not approved."
				if n.Notes != "" {
					text += " Notes: " + n.Notes
				}
			}
			mail = mailer.Message{ToName: n.DisplayName, ToEmail: n.Email, Subject: subject, Text: text}
		default:
			log.Printf("unknown notification kind %q dropped", n.Kind)
			continue
		}

		if err := sender.Send(mail); err != nil {
			log.Printf("mail send failed for %s: %v", mail.ToEmail, err)
			continue
		}
		log.Printf("notification %s delivered to %s", n.Kind, mail.ToEmail)
	}

	log.Println("worker stopped")
}
