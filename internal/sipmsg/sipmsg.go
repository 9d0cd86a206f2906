// Package sipmsg adapts sipgo requests to the views the routing engines need:
// raw message parsing, identity strings and header maps.
package sipmsg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emiago/sipgo/sip"
)

// Parse builds a request from raw message text. Bare LF line endings are
// accepted and Content-Length is recomputed from the body actually present.
func Parse(raw string) (*sip.Request, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	head, body, _ := strings.Cut(raw, "\n\n")
	head = strings.TrimLeft(head, "\n")

	var b strings.Builder
	for _, line := range strings.Split(head, "\n") {
		name, _, found := strings.Cut(line, ":")
		if found {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "content-length" || name == "l" {
				continue
			}
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	body = strings.ReplaceAll(body, "\n", "\r\n")
	b.WriteString("Content-Length: ")
	b.WriteString(strconv.Itoa(len(body)))
	b.WriteString("\r\n\r\n")
	b.WriteString(body)

	msg, err := sip.ParseMessage([]byte(b.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse sip message: %w", err)
	}

	req, ok := msg.(*sip.Request)
	if !ok {
		return nil, fmt.Errorf("sip message is not a request")
	}
	return req, nil
}

// ParseURI parses a sip: or sips: URI. A URI without a host is rejected.
func ParseURI(s string) (sip.Uri, error) {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "sip:") && !strings.HasPrefix(lower, "sips:") {
		return sip.Uri{}, fmt.Errorf("invalid uri %q: not a sip uri", s)
	}

	var uri sip.Uri
	if err := sip.ParseUri(s, &uri); err != nil {
		return sip.Uri{}, fmt.Errorf("invalid uri %q: %w", s, err)
	}
	if uri.Host == "" {
		return sip.Uri{}, fmt.Errorf("invalid uri %q: missing host", s)
	}
	return uri, nil
}

// Identity renders a URI as "sip:user@host" with port and parameters removed.
func Identity(uri sip.Uri) string {
	scheme := "sip"
	if uri.IsEncrypted() {
		scheme = "sips"
	}
	if uri.User == "" {
		return scheme + ":" + uri.Host
	}
	return scheme + ":" + uri.User + "@" + uri.Host
}

// RequestURI returns the request target as sent on the wire.
func RequestURI(req *sip.Request) string {
	return req.Recipient.String()
}

// IsTelURI reports whether the request target uses the tel scheme.
func IsTelURI(req *sip.Request) bool {
	return strings.HasPrefix(strings.ToLower(RequestURI(req)), "tel:")
}

// HeaderMap collects header values by lower-cased name, repeats in order.
func HeaderMap(req *sip.Request) map[string][]string {
	headers := make(map[string][]string)
	for _, h := range req.Headers() {
		name := strings.ToLower(h.Name())
		headers[name] = append(headers[name], h.Value())
	}
	return headers
}

// HeaderValues returns every value of the named header, compared without case.
func HeaderValues(req *sip.Request, name string) []string {
	var values []string
	for _, h := range req.Headers() {
		if strings.EqualFold(h.Name(), name) {
			values = append(values, h.Value())
		}
	}
	return values
}
