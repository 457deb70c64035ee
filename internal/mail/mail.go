// Copyright 2026 The Crux Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Message is a transactional email ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers transactional email. Implementations decide the
// transport; the dev implementation just logs.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Builder assembles the emailed links from the frontend base URL.
type Builder struct {
	baseURL string
}

// NewBuilder creates a message builder
func NewBuilder(frontendBaseURL string) *Builder {
	return &Builder{baseURL: frontendBaseURL}
}

func (b *Builder) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", b.baseURL, path, url.QueryEscape(token))
}

// MagicLink builds the one-time login message
func (b *Builder) MagicLink(email, token string) Message {
	return Message{
		To:      email,
		Subject: "Your sign-in link",
		Body:    fmt.Sprintf("Click to sign in: %s\n\nThe link expires shortly and can be used once.", b.link("/auth/magic", token)),
	}
}

// Invitation builds the invitation-accept message
func (b *Builder) Invitation(email, tenantName, token string) Message {
	return Message{
		To:      email,
		Subject: fmt.Sprintf("You have been invited to %s", tenantName),
		Body:    fmt.Sprintf("You have been invited to join %s. Accept here: %s", tenantName, b.link("/accept-invitation", token)),
	}
}

// PasswordReset builds the password-reset message
func (b *Builder) PasswordReset(email, token string) Message {
	return Message{
		To:      email,
		Subject: "Reset your password",
		Body:    fmt.Sprintf("Reset your password here: %s\n\nIf you did not request this, ignore this email.", b.link("/reset-password", token)),
	}
}

// SlogSender implements Sender by logging the message. Used in development
// and as the default when no delivery transport is configured.
type SlogSender struct{}

// NewSlogSender creates a logging mail sender
func NewSlogSender() *SlogSender {
	return &SlogSender{}
}

// Send logs the message instead of delivering it
func (s *SlogSender) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "outbound email",
		slog.String("component", "mail"),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
