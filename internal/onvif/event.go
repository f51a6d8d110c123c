package onvif

import (
	"fmt"
	"strings"
	"time"

	"github.com/virtcam/virtcam/internal/netutil"
	"github.com/virtcam/virtcam/internal/soap"
)

// eventOperations builds the event service handler set. subscriptionID is
// non-empty when the request arrived on a per-subscription endpoint, where
// Unsubscribe identifies its target by path.
func (s *Server) eventOperations(subscriptionID string) map[string]operation {
	return map[string]operation{
		"Subscribe":          s.subscribe,
		"Unsubscribe":        func(body []byte) string { return s.unsubscribe(subscriptionID, body) },
		"GetEventProperties": func([]byte) string { return s.getEventProperties() },
	}
}

// subscriptionAddr is the per-subscription endpoint handed back to
// consumers; Unsubscribe requests sent there carry the id in the path.
func (s *Server) subscriptionAddr(id string) string {
	return netutil.ServiceAddr(s.serverIP, s.devicePort, "/onvif/subscription/"+id)
}

func (s *Server) subscribe(body []byte) string {
	consumerRef := soap.ChildText(body, "ConsumerReference", "Address")
	if consumerRef == "" {
		consumerRef = "http://unknown/notify"
	}

	sub := s.events.Subscribe(consumerRef)

	termination := ""
	if ttl := s.events.TTL(); ttl > 0 {
		now := time.Now().UTC()
		termination = fmt.Sprintf(`
            <wsnt:CurrentTime>%s</wsnt:CurrentTime>
            <wsnt:TerminationTime>%s</wsnt:TerminationTime>`,
			now.Format(time.RFC3339),
			now.Add(ttl).Format(time.RFC3339))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <wsnt:SubscribeResponse xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2">
            <wsnt:SubscriptionReference>
                <wsa:Address xmlns:wsa="http://www.w3.org/2005/08/addressing">%s</wsa:Address>
            </wsnt:SubscriptionReference>%s
        </wsnt:SubscribeResponse>
    </soap:Body>
</soap:Envelope>`, soap.Escape(s.subscriptionAddr(sub.ID)), termination)
}

// unsubscribe resolves the target subscription from the endpoint path,
// falling back to a SubscriptionId element for clients that post to the
// shared event service address.
func (s *Server) unsubscribe(subscriptionID string, body []byte) string {
	id := subscriptionID
	if id == "" {
		id = soap.FirstText(body, "SubscriptionId")
	}
	if id == "" {
		return soap.Fault("Unsubscribe requires a subscription reference")
	}

	if err := s.events.Unsubscribe(id); err != nil {
		return soap.Fault(fmt.Sprintf("Unknown subscription %s", id))
	}

	return `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <wsnt:UnsubscribeResponse xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"/>
    </soap:Body>
</soap:Envelope>`
}

// topicElement turns an event type name into a safe XML element name for
// the topic set.
func topicElement(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
	if mapped == "" || (mapped[0] >= '0' && mapped[0] <= '9') {
		mapped = "_" + mapped
	}
	return mapped
}

// getEventProperties advertises the fixed topic set plus the active
// device's custom event types.
func (s *Server) getEventProperties() string {
	var custom strings.Builder
	for _, name := range s.activeDevice().CustomEvents {
		custom.WriteString(fmt.Sprintf(`
                    <%s wstop:topic="true"/>`, topicElement(name)))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <tev:GetEventPropertiesResponse xmlns:tev="http://www.onvif.org/ver10/events/wsdl"
                                        xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2"
                                        xmlns:wstop="http://docs.oasis-open.org/wsn/t-1"
                                        xmlns:tns1="http://www.onvif.org/ver10/topics">
            <tev:TopicNamespaceLocation>http://www.onvif.org/onvif/ver10/topics/topicns.xml</tev:TopicNamespaceLocation>
            <wsnt:FixedTopicSet>true</wsnt:FixedTopicSet>
            <wstop:TopicSet>
                <tns1:VideoSource wstop:topic="false">
                    <MotionAlarm wstop:topic="true"/>
                    <ImageTooBlurry wstop:topic="true"/>%s
                </tns1:VideoSource>
                <tns1:Device wstop:topic="false">
                    <TriggerRelay wstop:topic="true"/>
                </tns1:Device>
            </wstop:TopicSet>
        </tev:GetEventPropertiesResponse>
    </soap:Body>
</soap:Envelope>`, custom.String())
}
