// Package events tracks WS-BaseNotification subscribers and fans triggered
// device events out to them as Notify messages.
package events

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/virtcam/virtcam/internal/camera"
	"github.com/virtcam/virtcam/internal/soap"
)

// NotifySOAPAction is the SOAPAction header sent with every notification.
const NotifySOAPAction = "http://docs.oasis-open.org/wsn/bw-2/NotificationConsumer/Notify"

// ErrSubscriptionNotFound is returned by Unsubscribe for an unknown id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Subscription is one registered notification consumer.
type Subscription struct {
	ID                string
	ConsumerReference string
	CreatedAt         time.Time
}

// Dispatcher owns the subscription table and delivers event notifications.
// All methods are safe for concurrent use.
type Dispatcher struct {
	mu   sync.RWMutex
	subs map[string]Subscription

	reg    *camera.Registry
	log    zerolog.Logger
	client *http.Client

	// ttl bounds subscriber lifetime; zero means subscriptions live until
	// an explicit Unsubscribe, matching classic camera firmware behavior.
	ttl time.Duration

	now func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSubscriptionTTL bounds how long a subscription stays valid. Expired
// subscriptions are pruned lazily and never receive notifications.
func WithSubscriptionTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) { d.ttl = ttl }
}

// WithDeliveryTimeout sets the per-attempt timeout for notification POSTs.
func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.client.Timeout = timeout }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher with no subscribers.
func NewDispatcher(reg *camera.Registry, log zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		subs:   make(map[string]Subscription),
		reg:    reg,
		log:    log.With().Str("component", "events").Logger(),
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TTL returns the configured subscription lifetime; zero means unbounded.
func (d *Dispatcher) TTL() time.Duration { return d.ttl }

// Subscribe registers a notification consumer and returns the new
// subscription.
func (d *Dispatcher) Subscribe(consumerRef string) Subscription {
	sub := Subscription{
		ID:                uuid.Must(uuid.NewV4()).String(),
		ConsumerReference: consumerRef,
		CreatedAt:         d.now().UTC(),
	}

	d.mu.Lock()
	d.pruneExpiredLocked()
	d.subs[sub.ID] = sub
	d.mu.Unlock()

	d.log.Info().Str("subscription", sub.ID).Str("consumer", consumerRef).Msg("subscription added")
	return sub
}

// Unsubscribe removes a subscription.
func (d *Dispatcher) Unsubscribe(id string) error {
	d.mu.Lock()
	_, ok := d.subs[id]
	delete(d.subs, id)
	d.mu.Unlock()

	if !ok {
		return ErrSubscriptionNotFound
	}
	d.log.Info().Str("subscription", id).Msg("subscription removed")
	return nil
}

// Subscriptions returns the current live subscriptions.
func (d *Dispatcher) Subscriptions() []Subscription {
	d.mu.Lock()
	d.pruneExpiredLocked()
	subs := make([]Subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	d.mu.Unlock()
	return subs
}

// Trigger formats one Notify message for the event and posts it to every
// current subscriber. Deliveries run concurrently, each with its own
// timeout; a failed delivery is logged and does not affect the others. With
// no subscribers Trigger is a no-op. Returns once every attempt completed.
func (d *Dispatcher) Trigger(deviceID, eventType string, state bool) {
	subs := d.Subscriptions()
	if len(subs) == 0 {
		d.log.Debug().Str("event", eventType).Msg("no event subscribers to notify")
		return
	}

	deviceName := deviceID
	if dev, ok := d.reg.Get(deviceID); ok {
		deviceName = dev.Name
	}

	message := d.notifyMessage(deviceID, eventType, state)

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub Subscription) {
			defer wg.Done()
			if err := d.deliver(sub.ConsumerReference, message); err != nil {
				d.log.Error().Err(err).
					Str("subscription", sub.ID).
					Str("consumer", sub.ConsumerReference).
					Msg("event delivery failed")
				return
			}
			d.log.Info().
				Str("subscription", sub.ID).
				Str("device", deviceName).
				Str("event", eventType).
				Msg("event delivered")
		}(sub)
	}
	wg.Wait()
}

// pruneExpiredLocked drops subscriptions older than the TTL. Caller holds
// the write lock.
func (d *Dispatcher) pruneExpiredLocked() {
	if d.ttl <= 0 {
		return
	}
	cutoff := d.now().UTC().Add(-d.ttl)
	for id, sub := range d.subs {
		if sub.CreatedAt.Before(cutoff) {
			delete(d.subs, id)
			d.log.Info().Str("subscription", id).Msg("subscription expired")
		}
	}
}

func (d *Dispatcher) deliver(consumerRef, message string) error {
	req, err := http.NewRequest(http.MethodPost, consumerRef, strings.NewReader(message))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", soap.ContentType)
	req.Header.Set("SOAPAction", NotifySOAPAction)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("consumer answered HTTP %d", resp.StatusCode)
	}
	return nil
}

// topicFor maps an event type to its ONVIF topic expression. Unknown types
// become video-source topics verbatim so custom events flow through
// unchanged.
func topicFor(eventType string) string {
	switch eventType {
	case "motion":
		return "tns1:VideoSource/MotionAlarm"
	case "door":
		return "tns1:Device/TriggerRelay"
	case "tamper":
		return "tns1:VideoSource/ImageTooBlurry"
	default:
		return "tns1:VideoSource/" + eventType
	}
}

// notifyMessage renders the WS-Notification body shared by all subscribers
// of one trigger.
func (d *Dispatcher) notifyMessage(deviceID, eventType string, state bool) string {
	timestamp := d.now().UTC().Format(time.RFC3339Nano)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<wsnt:Notify xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"
             xmlns:tns1="http://www.onvif.org/ver10/topics"
             xmlns:tt="http://www.onvif.org/ver10/schema">
    <wsnt:NotificationMessage>
        <wsnt:Topic Dialect="http://www.onvif.org/ver10/tev/topicExpression/ConcreteSet">%s</wsnt:Topic>
        <wsnt:Message>
            <tt:Message UtcTime="%s" PropertyOperation="Changed">
                <tt:Source>
                    <tt:SimpleItem Name="VideoSourceConfigurationToken" Value="VideoSource_1"/>
                    <tt:SimpleItem Name="VideoSourceToken" Value="VideoSource_1"/>
                </tt:Source>
                <tt:Key>
                    <tt:SimpleItem Name="ObjectId" Value="%s"/>
                </tt:Key>
                <tt:Data>
                    <tt:SimpleItem Name="State" Value="%t"/>
                </tt:Data>
            </tt:Message>
        </wsnt:Message>
    </wsnt:NotificationMessage>
</wsnt:Notify>`, soap.Escape(topicFor(eventType)), timestamp, soap.Escape(deviceID), state)
}
