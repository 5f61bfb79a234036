// Package notify delivers the two optional post-publish side effects: a
// chief-resident summary email and a schedule-published AMQP event.
// Neither is required for a solve to succeed; both are wired in only when
// their respective config fields are set.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"

	"github.com/paiban/edrota/internal/config"
	"github.com/paiban/edrota/pkg/logger"
	"github.com/paiban/edrota/pkg/model"
	"github.com/paiban/edrota/pkg/scheduler/constraint"
)

// Mailer sends chief residents a summary of their own hour deviation and
// request violations once a schedule is published.
type Mailer struct {
	client *mail.Client
	from   string
}

// NewMailer builds a Mailer from the notify config's SMTP fields.
func NewMailer(cfg config.NotifyConfig) (*Mailer, error) {
	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithPort(cfg.SMTPPort),
		mail.WithUsername(cfg.SMTPUser),
		mail.WithPassword(cfg.SMTPPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("creating mail client: %w", err)
	}
	return &Mailer{client: client, from: cfg.FromAddress}, nil
}

// ChiefSummary is one chief resident's own-schedule digest.
type ChiefSummary struct {
	Handle            string
	HourDeviation     float64
	RequestViolations int
}

var summaryTemplate = template.Must(template.New("chief-summary").Parse(`
<p>Schedule published for {{.HorizonStart}} to {{.HorizonEnd}}.</p>
<p>Your hour deviation: {{printf "%.1f" .Summary.HourDeviation}} hours against target.</p>
<p>Your request violations this block: {{.Summary.RequestViolations}}.</p>
`))

// NotifyChiefs emails every chief resident their own summary. addresses maps
// a resident handle to its delivery address; a chief resident with no known
// address is skipped with a warning rather than failing the whole pass.
func (m *Mailer) NotifyChiefs(ctx context.Context, c *constraint.Context, horizonStart, horizonEnd time.Time, addresses map[string]string) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.client.DialWithContext(dialCtx); err != nil {
		return fmt.Errorf("dialing SMTP server: %w", err)
	}

	for _, r := range c.Residents {
		if !r.Chief {
			continue
		}
		addr, ok := addresses[r.Handle]
		if !ok {
			logger.Warn().Str("resident", r.Handle).Msg("no email address for chief resident, skipping notification")
			continue
		}

		msg := mail.NewMsg()
		if err := msg.From(m.from); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
		if err := msg.To(addr); err != nil {
			return fmt.Errorf("setting recipient %s: %w", addr, err)
		}
		msg.Subject(fmt.Sprintf("Schedule published: %s to %s", horizonStart.Format("2006-01-02"), horizonEnd.Format("2006-01-02")))

		data := struct {
			HorizonStart, HorizonEnd string
			Summary                  ChiefSummary
		}{
			HorizonStart: horizonStart.Format("2006-01-02"),
			HorizonEnd:   horizonEnd.Format("2006-01-02"),
			Summary:      ChiefSummary(chiefSummary(c, r, horizonStart, horizonEnd)),
		}
		if err := msg.SetBodyHTMLTemplate(summaryTemplate, data); err != nil {
			return fmt.Errorf("rendering summary for %s: %w", r.Handle, err)
		}

		if err := m.client.DialAndSend(msg); err != nil {
			return fmt.Errorf("sending summary to %s: %w", addr, err)
		}
	}
	return nil
}

// chiefSummary computes handle's own hour deviation and in-horizon request
// violations from the context's running state.
func chiefSummary(c *constraint.Context, r *model.Resident, horizonStart, horizonEnd time.Time) ChiefSummary {
	actual := float64(c.State(r.Handle).AssignedMinutes) / 60.0
	deviation := actual - float64(c.HoursTarget(r))

	violations := 0
	for date := horizonStart; !date.After(horizonEnd); date = date.AddDate(0, 0, 1) {
		if !r.Requested(date) {
			continue
		}
		if _, assigned := c.State(r.Handle).ByDate[date.Format("2006-01-02")]; assigned {
			violations++
		}
	}

	return ChiefSummary{Handle: r.Handle, HourDeviation: deviation, RequestViolations: violations}
}

// Close releases the underlying SMTP client.
func (m *Mailer) Close() error {
	return m.client.Close()
}

const publishedQueue = "edrota.schedule.published"

// EventPublisher publishes the schedule-published event to RabbitMQ.
type EventPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewEventPublisher dials url and declares the published-event queue.
func NewEventPublisher(url string) (*EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if _, err := ch.QueueDeclare(publishedQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", publishedQueue, err)
	}
	return &EventPublisher{conn: conn, channel: ch}, nil
}

// PublishedEvent is the payload carried by the schedule-published event.
type PublishedEvent struct {
	HorizonStart string  `json:"horizon_start"`
	HorizonEnd   string  `json:"horizon_end"`
	Seed         int64   `json:"seed"`
	Score        float64 `json:"score"`
}

// Publish sends event to the schedule-published queue.
func (p *EventPublisher) Publish(ctx context.Context, event PublishedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling schedule-published event: %w", err)
	}
	return p.channel.PublishWithContext(ctx, "", publishedQueue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Close releases the channel and connection.
func (p *EventPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
