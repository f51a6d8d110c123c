package events

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtcam/virtcam/internal/camera"
)

func newTestDispatcher(t *testing.T, opts ...Option) *Dispatcher {
	t.Helper()
	reg := camera.NewRegistry(zerolog.Nop())
	require.NoError(t, reg.Upsert(camera.Device{
		ID:   "cam-1",
		UUID: "a0f3b9e2-4c61-4d6e-9d5a-000000000001",
		Name: "Front Door",
	}))
	return NewDispatcher(reg, zerolog.Nop(), opts...)
}

type capturedNotify struct {
	body       string
	soapAction string
}

func notifyConsumer(t *testing.T, captured *[]capturedNotify, counter *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if captured != nil {
			*captured = append(*captured, capturedNotify{
				body:       string(body),
				soapAction: r.Header.Get("SOAPAction"),
			})
		}
		if counter != nil {
			atomic.AddInt32(counter, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTriggerDeliversMotionNotify(t *testing.T) {
	var captured []capturedNotify
	consumer := notifyConsumer(t, &captured, nil)

	d := newTestDispatcher(t)
	d.Subscribe(consumer.URL + "/notify")

	d.Trigger("cam-1", "motion", true)

	require.Len(t, captured, 1)
	assert.Equal(t, NotifySOAPAction, captured[0].soapAction)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(captured[0].body))

	topic := doc.FindElement("//Topic")
	require.NotNil(t, topic)
	assert.Equal(t, "tns1:VideoSource/MotionAlarm", topic.Text())

	var state string
	for _, item := range doc.FindElements("//Data/SimpleItem") {
		if item.SelectAttrValue("Name", "") == "State" {
			state = item.SelectAttrValue("Value", "")
		}
	}
	assert.Equal(t, "true", state)

	var objectID string
	for _, item := range doc.FindElements("//Key/SimpleItem") {
		if item.SelectAttrValue("Name", "") == "ObjectId" {
			objectID = item.SelectAttrValue("Value", "")
		}
	}
	assert.Equal(t, "cam-1", objectID)
}

func TestTopicMapping(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{"motion", "tns1:VideoSource/MotionAlarm"},
		{"door", "tns1:Device/TriggerRelay"},
		{"tamper", "tns1:VideoSource/ImageTooBlurry"},
		{"line_crossed", "tns1:VideoSource/line_crossed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, topicFor(tt.eventType), tt.eventType)
	}
}

func TestTriggerWithoutSubscribersIsNoop(t *testing.T) {
	var count int32
	notifyConsumer(t, nil, &count)

	d := newTestDispatcher(t)
	d.Trigger("cam-1", "motion", true)

	assert.Equal(t, int32(0), atomic.LoadInt32(&count))
}

func TestFailedSubscriberDoesNotAffectOthers(t *testing.T) {
	var count int32
	healthy := notifyConsumer(t, nil, &count)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	d := newTestDispatcher(t, WithDeliveryTimeout(2*time.Second))
	brokenSub := d.Subscribe(broken.URL)
	d.Subscribe(healthy.URL)
	d.Subscribe("http://127.0.0.1:1/unreachable")

	d.Trigger("cam-1", "door", false)

	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	// Failures never evict subscriptions.
	assert.Len(t, d.Subscriptions(), 3)
	assert.NoError(t, d.Unsubscribe(brokenSub.ID))
}

func TestUnsubscribe(t *testing.T) {
	d := newTestDispatcher(t)
	sub := d.Subscribe("http://consumer/notify")

	require.NoError(t, d.Unsubscribe(sub.ID))
	assert.Empty(t, d.Subscriptions())

	assert.ErrorIs(t, d.Unsubscribe(sub.ID), ErrSubscriptionNotFound)
}

func TestSubscriptionTTLPrunes(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	d := newTestDispatcher(t, WithSubscriptionTTL(time.Minute), WithClock(clock))
	d.Subscribe("http://consumer/a")

	now = now.Add(30 * time.Second)
	assert.Len(t, d.Subscriptions(), 1)

	now = now.Add(2 * time.Minute)
	assert.Empty(t, d.Subscriptions())
}

func TestZeroTTLMeansUnbounded(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	d := newTestDispatcher(t, WithClock(clock))
	d.Subscribe("http://consumer/a")

	now = now.Add(1000 * time.Hour)
	assert.Len(t, d.Subscriptions(), 1)
}
