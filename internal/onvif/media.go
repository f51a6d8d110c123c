package onvif

import (
	"fmt"
	"strings"

	"github.com/virtcam/virtcam/internal/soap"
)

func (s *Server) mediaOperations() map[string]operation {
	return map[string]operation{
		"GetProfiles":    func([]byte) string { return s.getProfiles() },
		"GetStreamUri":   s.getStreamURI,
		"GetSnapshotUri": func([]byte) string { return s.getSnapshotURI() },
	}
}

// getProfiles emits one profile block per configured stream endpoint. The
// encoder descriptions are static capability advertisements, not stream
// introspection.
func (s *Server) getProfiles() string {
	dev := s.activeDevice()

	var profiles strings.Builder
	if dev.MainStreamURL != "" {
		profiles.WriteString(`
            <trt:Profiles token="Profile_1" fixed="true">
                <tt:Name>MainStream</tt:Name>
                <tt:VideoSourceConfiguration token="VideoSource_1">
                    <tt:Name>VideoSource_1</tt:Name>
                    <tt:UseCount>1</tt:UseCount>
                    <tt:SourceToken>VideoSource_1</tt:SourceToken>
                    <tt:Bounds x="0" y="0" width="1920" height="1080"/>
                </tt:VideoSourceConfiguration>
                <tt:VideoEncoderConfiguration token="VideoEncoder_1">
                    <tt:Name>VideoEncoder_1</tt:Name>
                    <tt:UseCount>1</tt:UseCount>
                    <tt:Encoding>H264</tt:Encoding>
                    <tt:Resolution>
                        <tt:Width>1920</tt:Width>
                        <tt:Height>1080</tt:Height>
                    </tt:Resolution>
                    <tt:Quality>5</tt:Quality>
                    <tt:RateControl>
                        <tt:FrameRateLimit>30</tt:FrameRateLimit>
                        <tt:EncodingInterval>1</tt:EncodingInterval>
                        <tt:BitrateLimit>8000</tt:BitrateLimit>
                    </tt:RateControl>
                    <tt:H264>
                        <tt:GovLength>30</tt:GovLength>
                        <tt:H264Profile>Main</tt:H264Profile>
                    </tt:H264>
                </tt:VideoEncoderConfiguration>
            </trt:Profiles>`)
	}
	if dev.SubStreamURL != "" {
		profiles.WriteString(`
            <trt:Profiles token="Profile_2" fixed="true">
                <tt:Name>SubStream</tt:Name>
                <tt:VideoSourceConfiguration token="VideoSource_1">
                    <tt:Name>VideoSource_1</tt:Name>
                    <tt:UseCount>1</tt:UseCount>
                    <tt:SourceToken>VideoSource_1</tt:SourceToken>
                    <tt:Bounds x="0" y="0" width="704" height="576"/>
                </tt:VideoSourceConfiguration>
                <tt:VideoEncoderConfiguration token="VideoEncoder_2">
                    <tt:Name>VideoEncoder_2</tt:Name>
                    <tt:UseCount>1</tt:UseCount>
                    <tt:Encoding>H264</tt:Encoding>
                    <tt:Resolution>
                        <tt:Width>704</tt:Width>
                        <tt:Height>576</tt:Height>
                    </tt:Resolution>
                    <tt:Quality>3</tt:Quality>
                    <tt:RateControl>
                        <tt:FrameRateLimit>15</tt:FrameRateLimit>
                        <tt:EncodingInterval>1</tt:EncodingInterval>
                        <tt:BitrateLimit>1000</tt:BitrateLimit>
                    </tt:RateControl>
                    <tt:H264>
                        <tt:GovLength>15</tt:GovLength>
                        <tt:H264Profile>Baseline</tt:H264Profile>
                    </tt:H264>
                </tt:VideoEncoderConfiguration>
            </trt:Profiles>`)
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"
               xmlns:trt="http://www.onvif.org/ver10/media/wsdl"
               xmlns:tt="http://www.onvif.org/ver10/schema">
    <soap:Body>
        <trt:GetProfilesResponse>%s
        </trt:GetProfilesResponse>
    </soap:Body>
</soap:Envelope>`, profiles.String())
}

// getStreamURI maps the requested profile token to the matching stream
// endpoint. Unknown or missing tokens fall back to the main stream.
func (s *Server) getStreamURI(body []byte) string {
	dev := s.activeDevice()

	streamURL := dev.MainStreamURL
	if soap.FirstText(body, "ProfileToken") == "Profile_2" && dev.SubStreamURL != "" {
		streamURL = dev.SubStreamURL
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <trt:GetStreamUriResponse xmlns:trt="http://www.onvif.org/ver10/media/wsdl">
            <trt:MediaUri>
                <tt:Uri xmlns:tt="http://www.onvif.org/ver10/schema">%s</tt:Uri>
                <tt:InvalidAfterConnect xmlns:tt="http://www.onvif.org/ver10/schema">false</tt:InvalidAfterConnect>
                <tt:InvalidAfterReboot xmlns:tt="http://www.onvif.org/ver10/schema">false</tt:InvalidAfterReboot>
                <tt:Timeout xmlns:tt="http://www.onvif.org/ver10/schema">PT60S</tt:Timeout>
            </trt:MediaUri>
        </trt:GetStreamUriResponse>
    </soap:Body>
</soap:Envelope>`, soap.Escape(streamURL))
}

// getSnapshotURI answers with an empty media URI; the virtual camera has no
// snapshot endpoint to offer, and clients treat an empty Uri as "no
// snapshot support".
func (s *Server) getSnapshotURI() string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <trt:GetSnapshotUriResponse xmlns:trt="http://www.onvif.org/ver10/media/wsdl">
            <trt:MediaUri>
                <tt:Uri xmlns:tt="http://www.onvif.org/ver10/schema"></tt:Uri>
                <tt:InvalidAfterConnect xmlns:tt="http://www.onvif.org/ver10/schema">false</tt:InvalidAfterConnect>
                <tt:InvalidAfterReboot xmlns:tt="http://www.onvif.org/ver10/schema">false</tt:InvalidAfterReboot>
                <tt:Timeout xmlns:tt="http://www.onvif.org/ver10/schema">PT60S</tt:Timeout>
            </trt:MediaUri>
        </trt:GetSnapshotUriResponse>
    </soap:Body>
</soap:Envelope>`
}
