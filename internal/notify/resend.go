package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "avisos@unomed.com.br"
	fromName   string // e.g. "Unomed Saúde Ocupacional"
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(apiKey, fromAddr, fromName string) Sender {
	return &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendNotification delivers a reminder or alert to its recipient list.
func (c *resendClient) SendNotification(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return fmt.Errorf("notify: message has no recipients")
	}
	return c.send(ctx, m.To, m.Subject, notificationHTML(m))
}

// SendInvite delivers the portal access link.
func (c *resendClient) SendInvite(ctx context.Context, p InviteParams) error {
	subject := "Sua avaliação psicossocial está disponível"
	return c.send(ctx, []string{p.To}, subject, inviteHTML(p))
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to []string, subject, html string) error {
	from := fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr)

	bodyBytes, err := json.Marshal(resendRequest{
		From:    from,
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.resend.com/emails",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("notify: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("notify: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("notify: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

func notificationHTML(m Message) string {
	badge := ""
	if m.Priority == "high" {
		badge = `<p style="color: #b91c1c; font-weight: 600; margin-bottom: 8px;">Prioridade alta</p>`
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  %s
  <h2 style="margin-bottom: 8px;">%s</h2>
  <p>%s</p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    Unomed · Gestão de riscos psicossociais · Notificação automática
  </p>
</body>
</html>`, badge, m.Subject, m.HTML)
}

func inviteHTML(p InviteParams) string {
	greeting := "Olá"
	if p.EmployeeName != "" {
		greeting = fmt.Sprintf("Olá, %s", p.EmployeeName)
	}
	expiry := p.ExpiresAt.Format("02/01/2006")

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Avaliação psicossocial</h2>
  <p>%s,</p>
  <p>Sua avaliação psicossocial está disponível. O questionário leva poucos
  minutos e suas respostas são tratadas de forma confidencial.</p>
  <p style="margin: 32px 0;">
    <a href="%s"
       style="background: #0f172a; color: #ffffff; padding: 12px 24px;
              border-radius: 6px; text-decoration: none; font-weight: 600;">
      Responder avaliação
    </a>
  </p>
  <p style="color: #6b7280; font-size: 14px;">
    O link é pessoal, de uso único e válido até %s.<br>
    Se o botão acima não funcionar, copie esta URL:<br>
    <a href="%s" style="color: #6b7280;">%s</a>
  </p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    Unomed · Gestão de riscos psicossociais
  </p>
</body>
</html>`, greeting, p.PortalURL, expiry, p.PortalURL, p.PortalURL)
}
