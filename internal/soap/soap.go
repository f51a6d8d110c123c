// Package soap provides the SOAP 1.2 helpers shared by the ONVIF dispatcher
// and the WS-Discovery responder: tolerant envelope inspection and fault
// rendering.
//
// Parsing is deliberately namespace-prefix agnostic. Real ONVIF clients use
// whatever prefixes their toolkits emit (s:, soap:, SOAP-ENV:, env:, none),
// so elements are matched by local name only.
package soap

import (
	"strings"

	"github.com/beevik/etree"
)

// ContentType is the media type for all SOAP 1.2 exchanges.
const ContentType = "application/soap+xml; charset=utf-8"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape makes a string safe for interpolation into XML character data or
// attribute values.
func Escape(s string) string {
	return escaper.Replace(s)
}

func parse(body []byte) *etree.Document {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil
	}
	if doc.Root() == nil {
		return nil
	}
	return doc
}

// Action returns the local name of the first element inside the SOAP Body,
// which by ONVIF convention names the requested operation. Returns "" when
// the body is not parseable XML or carries no operation element.
func Action(body []byte) string {
	doc := parse(body)
	if doc == nil {
		return ""
	}
	bodyEl := doc.FindElement("//Body")
	if bodyEl == nil {
		return ""
	}
	children := bodyEl.ChildElements()
	if len(children) == 0 {
		return ""
	}
	return children[0].Tag
}

// FirstText returns the trimmed text of the first element with the given
// local name, regardless of namespace prefix. Returns "" when the document
// is unparseable or the element is absent.
func FirstText(body []byte, local string) string {
	doc := parse(body)
	if doc == nil {
		return ""
	}
	el := doc.FindElement("//" + local)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// ChildText returns the trimmed text of the first child element found
// beneath parent, both matched by local name. Used where the same element
// name appears in several roles, like wsa:Address inside ConsumerReference
// versus inside ReplyTo.
func ChildText(body []byte, parent, child string) string {
	doc := parse(body)
	if doc == nil {
		return ""
	}
	el := doc.FindElement("//" + parent + "//" + child)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// HasElement reports whether an element with the given local name exists
// anywhere in the document.
func HasElement(body []byte, local string) bool {
	doc := parse(body)
	if doc == nil {
		return false
	}
	return doc.FindElement("//"+local) != nil
}

// HasToken is the compatibility fallback for requests that are not valid
// XML: it reports whether the operation token appears anywhere in the raw
// body, matching how permissive real-world camera firmware routes requests.
func HasToken(body []byte, token string) bool {
	return strings.Contains(string(body), token)
}

// Fault renders a soap:Sender fault envelope with a human-readable reason.
// Faults are application-level errors; the transport still answers HTTP 200.
func Fault(reason string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
    <soap:Body>
        <soap:Fault>
            <soap:Code>
                <soap:Value>soap:Sender</soap:Value>
            </soap:Code>
            <soap:Reason>
                <soap:Text xml:lang="en">` + Escape(reason) + `</soap:Text>
            </soap:Reason>
        </soap:Fault>
    </soap:Body>
</soap:Envelope>`
}
