package onvif

import (
	"fmt"
	"strings"

	"github.com/virtcam/virtcam/internal/soap"
)

func (s *Server) deviceOperations() map[string]operation {
	return map[string]operation{
		"GetDeviceInformation": func([]byte) string { return s.getDeviceInformation() },
		"GetCapabilities":      func([]byte) string { return s.getCapabilities() },
		"GetServices":          func([]byte) string { return s.getServices() },
		"GetScopes":            func([]byte) string { return s.getScopes() },
	}
}

func (s *Server) getDeviceInformation() string {
	dev := s.activeDevice()
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <tds:GetDeviceInformationResponse xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
            <tds:Manufacturer>%s</tds:Manufacturer>
            <tds:Model>%s</tds:Model>
            <tds:FirmwareVersion>%s</tds:FirmwareVersion>
            <tds:SerialNumber>%s</tds:SerialNumber>
            <tds:HardwareId>%s</tds:HardwareId>
        </tds:GetDeviceInformationResponse>
    </soap:Body>
</soap:Envelope>`,
		soap.Escape(dev.Manufacturer),
		soap.Escape(dev.Model),
		soap.Escape(dev.FirmwareVersion),
		soap.Escape(dev.UUID),
		soap.Escape(dev.HardwareID()))
}

func (s *Server) getCapabilities() string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <tds:GetCapabilitiesResponse xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
            <tds:Capabilities>
                <tt:Device xmlns:tt="http://www.onvif.org/ver10/schema">
                    <tt:XAddr>%s</tt:XAddr>
                    <tt:Network>
                        <tt:IPFilter>false</tt:IPFilter>
                        <tt:ZeroConfiguration>false</tt:ZeroConfiguration>
                        <tt:IPVersion6>false</tt:IPVersion6>
                        <tt:DynDNS>false</tt:DynDNS>
                    </tt:Network>
                    <tt:System>
                        <tt:DiscoveryResolve>false</tt:DiscoveryResolve>
                        <tt:DiscoveryBye>false</tt:DiscoveryBye>
                        <tt:RemoteDiscovery>false</tt:RemoteDiscovery>
                    </tt:System>
                </tt:Device>
                <tt:Events xmlns:tt="http://www.onvif.org/ver10/schema">
                    <tt:XAddr>%s</tt:XAddr>
                    <tt:WSSubscriptionPolicySupport>true</tt:WSSubscriptionPolicySupport>
                    <tt:WSPullPointSupport>false</tt:WSPullPointSupport>
                </tt:Events>
                <tt:Media xmlns:tt="http://www.onvif.org/ver10/schema">
                    <tt:XAddr>%s</tt:XAddr>
                    <tt:StreamingCapabilities>
                        <tt:RTPMulticast>false</tt:RTPMulticast>
                        <tt:RTP_TCP>true</tt:RTP_TCP>
                        <tt:RTP_RTSP_TCP>true</tt:RTP_RTSP_TCP>
                    </tt:StreamingCapabilities>
                </tt:Media>
            </tds:Capabilities>
        </tds:GetCapabilitiesResponse>
    </soap:Body>
</soap:Envelope>`, s.deviceServiceAddr(), s.eventServiceAddr(), s.mediaServiceAddr())
}

func (s *Server) getServices() string {
	service := func(namespace, xaddr string) string {
		return fmt.Sprintf(`
            <tds:Service>
                <tds:Namespace>%s</tds:Namespace>
                <tds:XAddr>%s</tds:XAddr>
                <tds:Version>
                    <tt:Major xmlns:tt="http://www.onvif.org/ver10/schema">2</tt:Major>
                    <tt:Minor xmlns:tt="http://www.onvif.org/ver10/schema">40</tt:Minor>
                </tds:Version>
            </tds:Service>`, namespace, xaddr)
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <tds:GetServicesResponse xmlns:tds="http://www.onvif.org/ver10/device/wsdl">%s%s%s
        </tds:GetServicesResponse>
    </soap:Body>
</soap:Envelope>`,
		service("http://www.onvif.org/ver10/device/wsdl", s.deviceServiceAddr()),
		service("http://www.onvif.org/ver10/media/wsdl", s.mediaServiceAddr()),
		service("http://www.onvif.org/ver10/events/wsdl", s.eventServiceAddr()))
}

// scopeItems lists the discovery scopes advertised for the active device.
// Spaces in names are encoded as underscores per ONVIF scope convention.
func (s *Server) scopeItems() []string {
	dev := s.activeDevice()
	name := dev.Name
	if name == "" {
		name = "Virtual Camera"
	}
	return []string{
		"onvif://www.onvif.org/location/unknown",
		"onvif://www.onvif.org/name/" + strings.ReplaceAll(name, " ", "_"),
		"onvif://www.onvif.org/hardware/VirtualONVIF",
		"onvif://www.onvif.org/Profile/Streaming",
	}
}

func (s *Server) getScopes() string {
	var items strings.Builder
	for _, scope := range s.scopeItems() {
		items.WriteString(fmt.Sprintf(`
            <tds:Scopes>
                <tt:ScopeDef xmlns:tt="http://www.onvif.org/ver10/schema">Fixed</tt:ScopeDef>
                <tt:ScopeItem xmlns:tt="http://www.onvif.org/ver10/schema">%s</tt:ScopeItem>
            </tds:Scopes>`, soap.Escape(scope)))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <tds:GetScopesResponse xmlns:tds="http://www.onvif.org/ver10/device/wsdl">%s
        </tds:GetScopesResponse>
    </soap:Body>
</soap:Envelope>`, items.String())
}
