package sipmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invite = `INVITE sip:+15108580271@example.com;user=phone SIP/2.0
Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bK776asdhds
Max-Forwards: 70
From: Alice <sip:alice@example.com:5060;transport=udp>;tag=1928301774
To: <sip:+15108580271@example.com>
Call-ID: a84b4c76e66710@pc33.example.com
CSeq: 314159 INVITE
Privacy: id
Privacy: header
Content-Type: application/sdp
Content-Length: 999

v=0
m=audio 49170 RTP/AVP 0
`

func TestParseRecomputesContentLength(t *testing.T) {
	req, err := Parse(invite)
	require.NoError(t, err)

	assert.Equal(t, "INVITE", string(req.Method))
	assert.Equal(t, "+15108580271", req.Recipient.User)
	assert.Equal(t, "example.com", req.Recipient.Host)
	assert.Equal(t, "v=0\r\nm=audio 49170 RTP/AVP 0\r\n", string(req.Body()))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("this is not sip")
	assert.Error(t, err)
}

func TestIdentityStripsPortAndParams(t *testing.T) {
	req, err := Parse(invite)
	require.NoError(t, err)

	from := req.From()
	require.NotNil(t, from)
	assert.Equal(t, "sip:alice@example.com", Identity(from.Address))
	assert.Equal(t, "sip:+15108580271@example.com", Identity(req.Recipient))
}

func TestHeaderViews(t *testing.T) {
	req, err := Parse(invite)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "header"}, HeaderValues(req, "privacy"))
	headers := HeaderMap(req)
	assert.Equal(t, []string{"id", "header"}, headers["privacy"])
	assert.Contains(t, headers, "call-id")
	assert.False(t, IsTelURI(req))
}

func TestParseURI(t *testing.T) {
	uri, err := ParseURI("sip:1234@gw.example.net")
	require.NoError(t, err)
	assert.Equal(t, "1234", uri.User)
	assert.Equal(t, "gw.example.net", uri.Host)
}

func TestParseURIRejectsNonSIPTargets(t *testing.T) {
	for _, s := range []string{"", "gw.example.net", "mailto:ops@example.net", "sip:"} {
		_, err := ParseURI(s)
		assert.Error(t, err, s)
	}
}

func TestIdentityKeepsSecureScheme(t *testing.T) {
	uri, err := ParseURI("sips:bob@secure.example.com:5061;transport=tls")
	require.NoError(t, err)
	assert.Equal(t, "sips:bob@secure.example.com", Identity(uri))

	uri, err = ParseURI("sip:gw.example.net")
	require.NoError(t, err)
	assert.Equal(t, "sip:gw.example.net", Identity(uri))
}
