package discovery

import (
	"fmt"
	"strings"

	"github.com/gofrs/uuid"

	"github.com/virtcam/virtcam/internal/camera"
	"github.com/virtcam/virtcam/internal/soap"
)

// scopeName encodes a device name for use inside the space-separated scope
// list. ONVIF devices conventionally encode spaces as underscores; clients
// reverse the substitution when displaying the name.
func scopeName(name string) string {
	if name == "" {
		return "Virtual_Camera"
	}
	return strings.ReplaceAll(name, " ", "_")
}

func deviceScopes(dev camera.Device) string {
	return fmt.Sprintf(
		"onvif://www.onvif.org/location/unknown onvif://www.onvif.org/name/%s onvif://www.onvif.org/hardware/VirtualONVIF onvif://www.onvif.org/Profile/Streaming",
		soap.Escape(scopeName(dev.Name)))
}

func freshMessageID() string {
	return "urn:uuid:" + uuid.Must(uuid.NewV4()).String()
}

// probeMatchMessage answers a Probe with a single match describing the
// active device.
func probeMatchMessage(dev camera.Device, relatesTo, xaddr string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"
               xmlns:wsa="http://www.w3.org/2005/08/addressing"
               xmlns:wsd="http://schemas.xmlsoap.org/ws/2005/04/discovery"
               xmlns:tns="http://www.onvif.org/ver10/network/wsdl">
    <soap:Header>
        <wsa:Action>http://schemas.xmlsoap.org/ws/2005/04/discovery/ProbeMatches</wsa:Action>
        <wsa:MessageID>%s</wsa:MessageID>
        <wsa:RelatesTo>%s</wsa:RelatesTo>
        <wsa:To>http://www.w3.org/2005/08/addressing/anonymous</wsa:To>
    </soap:Header>
    <soap:Body>
        <wsd:ProbeMatches>
            <wsd:ProbeMatch>
                <wsa:EndpointReference>
                    <wsa:Address>urn:uuid:%s</wsa:Address>
                </wsa:EndpointReference>
                <wsd:Types>tns:NetworkVideoTransmitter</wsd:Types>
                <wsd:Scopes>%s</wsd:Scopes>
                <wsd:XAddrs>%s</wsd:XAddrs>
                <wsd:MetadataVersion>1</wsd:MetadataVersion>
            </wsd:ProbeMatch>
        </wsd:ProbeMatches>
    </soap:Body>
</soap:Envelope>`, freshMessageID(), soap.Escape(relatesTo), soap.Escape(dev.UUID), deviceScopes(dev), soap.Escape(xaddr))
}

// helloMessage announces the active device coming online.
func helloMessage(dev camera.Device, xaddr string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"
               xmlns:wsa="http://www.w3.org/2005/08/addressing"
               xmlns:wsd="http://schemas.xmlsoap.org/ws/2005/04/discovery"
               xmlns:tns="http://www.onvif.org/ver10/network/wsdl">
    <soap:Header>
        <wsa:Action>http://schemas.xmlsoap.org/ws/2005/04/discovery/Hello</wsa:Action>
        <wsa:MessageID>%s</wsa:MessageID>
        <wsa:To>urn:schemas-xmlsoap-org:ws:2005:04:discovery</wsa:To>
    </soap:Header>
    <soap:Body>
        <wsd:Hello>
            <wsa:EndpointReference>
                <wsa:Address>urn:uuid:%s</wsa:Address>
            </wsa:EndpointReference>
            <wsd:Types>tns:NetworkVideoTransmitter</wsd:Types>
            <wsd:Scopes>%s</wsd:Scopes>
            <wsd:XAddrs>%s</wsd:XAddrs>
            <wsd:MetadataVersion>1</wsd:MetadataVersion>
        </wsd:Hello>
    </soap:Body>
</soap:Envelope>`, freshMessageID(), soap.Escape(dev.UUID), deviceScopes(dev), soap.Escape(xaddr))
}

// byeMessage announces the active device going offline.
func byeMessage(dev camera.Device) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"
               xmlns:wsa="http://www.w3.org/2005/08/addressing"
               xmlns:wsd="http://schemas.xmlsoap.org/ws/2005/04/discovery"
               xmlns:tns="http://www.onvif.org/ver10/network/wsdl">
    <soap:Header>
        <wsa:Action>http://schemas.xmlsoap.org/ws/2005/04/discovery/Bye</wsa:Action>
        <wsa:MessageID>%s</wsa:MessageID>
        <wsa:To>urn:schemas-xmlsoap-org:ws:2005:04:discovery</wsa:To>
    </soap:Header>
    <soap:Body>
        <wsd:Bye>
            <wsa:EndpointReference>
                <wsa:Address>urn:uuid:%s</wsa:Address>
            </wsa:EndpointReference>
            <wsd:Types>tns:NetworkVideoTransmitter</wsd:Types>
            <wsd:MetadataVersion>1</wsd:MetadataVersion>
        </wsd:Bye>
    </soap:Body>
</soap:Envelope>`, freshMessageID(), soap.Escape(dev.UUID))
}
