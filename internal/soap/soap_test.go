package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionAcrossPrefixes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "tds prefix",
			body: `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"
            xmlns:tds="http://www.onvif.org/ver10/device/wsdl">
  <s:Body><tds:GetDeviceInformation/></s:Body>
</s:Envelope>`,
			want: "GetDeviceInformation",
		},
		{
			name: "SOAP-ENV prefix",
			body: `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://www.w3.org/2003/05/soap-envelope">
<SOAP-ENV:Body><GetProfiles xmlns="http://www.onvif.org/ver10/media/wsdl"/></SOAP-ENV:Body>
</SOAP-ENV:Envelope>`,
			want: "GetProfiles",
		},
		{
			name: "no prefix at all",
			body: `<Envelope><Body><Subscribe/></Body></Envelope>`,
			want: "Subscribe",
		},
		{
			name: "empty body element",
			body: `<Envelope><Body/></Envelope>`,
			want: "",
		},
		{
			name: "not xml",
			body: `this is not xml`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Action([]byte(tt.body)))
		})
	}
}

func TestFirstText(t *testing.T) {
	body := `<Envelope><Body>
<trt:GetStreamUri xmlns:trt="http://www.onvif.org/ver10/media/wsdl">
  <trt:ProfileToken> Profile_2 </trt:ProfileToken>
</trt:GetStreamUri>
</Body></Envelope>`

	assert.Equal(t, "Profile_2", FirstText([]byte(body), "ProfileToken"))
	assert.Equal(t, "", FirstText([]byte(body), "ConsumerReference"))
	assert.Equal(t, "", FirstText([]byte("garbage"), "ProfileToken"))
}

func TestChildText(t *testing.T) {
	body := `<Envelope>
<Header><wsa:ReplyTo xmlns:wsa="http://www.w3.org/2005/08/addressing"><wsa:Address>anon</wsa:Address></wsa:ReplyTo></Header>
<Body><wsnt:Subscribe xmlns:wsnt="http://docs.oasis-open.org/wsn/b-2">
  <wsnt:ConsumerReference>
    <wsa:Address xmlns:wsa="http://www.w3.org/2005/08/addressing">http://consumer/notify</wsa:Address>
  </wsnt:ConsumerReference>
</wsnt:Subscribe></Body>
</Envelope>`

	assert.Equal(t, "http://consumer/notify", ChildText([]byte(body), "ConsumerReference", "Address"))
	assert.Equal(t, "", ChildText([]byte(body), "SubscriptionReference", "Address"))
}

func TestHasElement(t *testing.T) {
	probe := `<e:Envelope xmlns:e="http://www.w3.org/2003/05/soap-envelope"
  xmlns:d="http://schemas.xmlsoap.org/ws/2005/04/discovery">
<e:Body><d:Probe><d:Types>dn:NetworkVideoTransmitter</d:Types></d:Probe></e:Body>
</e:Envelope>`

	assert.True(t, HasElement([]byte(probe), "Probe"))
	assert.False(t, HasElement([]byte(probe), "Resolve"))
	assert.False(t, HasElement([]byte("<<<"), "Probe"))
}

func TestHasToken(t *testing.T) {
	assert.True(t, HasToken([]byte("<broken <GetScopes"), "GetScopes"))
	assert.False(t, HasToken([]byte("<broken"), "GetScopes"))
}

func TestFaultEscapesReason(t *testing.T) {
	fault := Fault(`unsupported <operation> "x"`)
	assert.Contains(t, fault, "soap:Sender")
	assert.Contains(t, fault, "unsupported &lt;operation&gt; &quot;x&quot;")
	assert.NotContains(t, fault, "<operation>")
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "a&amp;b&lt;c&gt;d&apos;e", Escape(`a&b<c>d'e`))
}
