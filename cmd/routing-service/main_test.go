package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cliProfile = `<ServiceProfile>
  <InitialFilterCriteria>
    <Priority>1</Priority>
    <TriggerPoint>
      <ConditionTypeCNF>0</ConditionTypeCNF>
      <SPT><Group>0</Group><Method>INVITE</Method></SPT>
    </TriggerPoint>
    <ApplicationServer><ServerName>sip:mmtel.example.com</ServerName></ApplicationServer>
  </InitialFilterCriteria>
  <InitialFilterCriteria>
    <Priority>2</Priority>
    <ProfilePartIndicator>0</ProfilePartIndicator>
    <ApplicationServer><ServerName>sip:registered-only.example.com</ServerName></ApplicationServer>
  </InitialFilterCriteria>
</ServiceProfile>`

const cliInvite = `INVITE sip:bob@example.com SIP/2.0
Via: SIP/2.0/UDP 10.0.0.1:5060;branch=z9hG4bK776asdhds
Max-Forwards: 70
From: <sip:alice@example.com>;tag=1928301774
To: <sip:bob@example.com>
Call-ID: cli-test@pc33.example.com
CSeq: 1 INVITE
Content-Length: 0

`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runEvaluate(t *testing.T, extra ...string) ([]string, error) {
	t.Helper()
	dir := t.TempDir()
	args := []string{
		"evaluate",
		"--ifc", writeFile(t, dir, "ifc.xml", cliProfile),
		"--message", writeFile(t, dir, "invite.sip", cliInvite),
	}
	args = append(args, extra...)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return nil, err
	}

	var servers []string
	require.NoError(t, json.Unmarshal(out.Bytes(), &servers))
	return servers, nil
}

func TestEvaluateCommand(t *testing.T) {
	servers, err := runEvaluate(t, "--session-case", "orig")
	require.NoError(t, err)
	assert.Equal(t, []string{"sip:mmtel.example.com", "sip:registered-only.example.com"}, servers)
}

func TestEvaluateCommandUnregistered(t *testing.T) {
	servers, err := runEvaluate(t, "--session-case", "term", "--unregistered")
	require.NoError(t, err)
	assert.Equal(t, []string{"sip:mmtel.example.com"}, servers)
}

func TestEvaluateCommandRejectsUnknownSessionCase(t *testing.T) {
	_, err := runEvaluate(t, "--session-case", "sideways")
	assert.Error(t, err)
}

func TestTranslateRequiresConfig(t *testing.T) {
	configFile = ""
	t.Setenv("CONFIG_FILE", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"translate", "+15108580271"})
	assert.Error(t, root.Execute())
}
